package runtime

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// InputPolicy bounds what a visitor may type. MaxBytes applies to every message
// before it is parsed; MaxTextRunes applies to free-text answers after trimming.
// Zero fields fall back to DefaultInputPolicy.
type InputPolicy struct {
	MaxBytes     int
	MaxTextRunes int
}

// DefaultInputPolicy accepts 4 KiB messages and free-text answers up to MaxTextLength.
var DefaultInputPolicy = InputPolicy{MaxBytes: 4096, MaxTextRunes: MaxTextLength}

func (p InputPolicy) maxBytes() int {
	if p.MaxBytes > 0 {
		return p.MaxBytes
	}
	return DefaultInputPolicy.MaxBytes
}

func (p InputPolicy) maxTextRunes() int {
	if p.MaxTextRunes > 0 {
		return p.MaxTextRunes
	}
	return DefaultInputPolicy.MaxTextRunes
}

// Clean rejects oversized or malformed input and strips terminal control
// characters other than newline, tab and carriage return. Oversized input is
// rejected rather than truncated so a stored answer is always what was typed.
func (p InputPolicy) Clean(input string) (string, error) {
	if limit := p.maxBytes(); len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}
