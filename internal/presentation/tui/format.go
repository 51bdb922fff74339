package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/greenoffice/leadchat/internal/runtime"
	"github.com/greenoffice/leadchat/pkg/conversation"
	"github.com/greenoffice/leadchat/pkg/domain"
)

// Markdown formats a reply for the terminal. Options are numbered from 1.
func Markdown(r conversation.Reply) string {
	var sb strings.Builder
	for _, m := range r.Messages {
		sb.WriteString(m)
		sb.WriteString("\n\n")
	}
	if r.Error != "" {
		fmt.Fprintf(&sb, "_%s_\n\n", r.Error)
	}
	if p := r.Prompt; p != nil {
		fmt.Fprintf(&sb, "**%s**\n\n", p.Text)
		for i, opt := range p.Options {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, opt)
		}
		if len(p.Options) > 0 {
			sb.WriteString("\n")
		}
		if h := hint(p); h != "" {
			fmt.Fprintf(&sb, "_%s_\n", h)
		}
	}
	if r.Mode == domain.ModeDetour {
		sb.WriteString("_Go ahead, ask me anything about Green Office Villas._\n")
	}
	return sb.String()
}

func hint(p *runtime.Prompt) string {
	switch p.Kind {
	case domain.KindMulti:
		return "Pick one or more numbers, separated by commas."
	case domain.KindYesNo:
		return "Answer yes or no."
	case domain.KindDate:
		return "Use the format YYYY-MM-DD."
	case domain.KindNumber:
		if p.Max > 0 {
			return fmt.Sprintf("Enter a number between %d and %d.", p.Min, p.Max)
		}
	}
	return ""
}

// ChoiceInput maps the 1-based numbers typed in the terminal onto the 0-based
// option indexes the engine expects. Labels and other kinds pass through.
func ChoiceInput(p *runtime.Prompt, input string) string {
	if p == nil {
		return input
	}
	switch p.Kind {
	case domain.KindSingle:
		return shift(strings.TrimSpace(input), len(p.Options))
	case domain.KindMulti:
		parts := strings.Split(input, ",")
		for i, part := range parts {
			parts[i] = shift(strings.TrimSpace(part), len(p.Options))
		}
		return strings.Join(parts, ",")
	}
	return input
}

func shift(token string, n int) string {
	i, err := strconv.Atoi(token)
	if err != nil || i < 1 || i > n {
		// Leave it for the engine to reject with a proper message.
		if err == nil {
			return strconv.Itoa(-1)
		}
		return token
	}
	return strconv.Itoa(i - 1)
}
