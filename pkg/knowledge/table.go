// Package knowledge answers free-text questions about the venue from an ordered
// keyword table, optionally delegating to a language model.
package knowledge

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultTable []byte

// Topic is one entry of the keyword table.
type Topic struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Response string   `yaml:"response" json:"response"`
}

// Table is an ordered list of topics. Order is significant: the first match wins.
type Table struct {
	Topics      []Topic `yaml:"topics"`
	FallbackMsg string  `yaml:"fallback"`
}

// Load parses a YAML topic table. Keywords are normalised to lower case.
func Load(r io.Reader) (*Table, error) {
	var t Table
	if err := yaml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge table: %w", err)
	}
	if len(t.Topics) == 0 {
		return nil, fmt.Errorf("knowledge table has no topics")
	}
	for i := range t.Topics {
		tp := &t.Topics[i]
		if tp.Name == "" || tp.Response == "" {
			return nil, fmt.Errorf("knowledge topic %d needs a name and a response", i)
		}
		kws := tp.Keywords[:0]
		for _, k := range tp.Keywords {
			k = strings.ToLower(strings.TrimSpace(k))
			if k != "" {
				kws = append(kws, k)
			}
		}
		tp.Keywords = kws
	}
	return &t, nil
}

// LoadFile reads a topic table from disk.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Default returns the built-in Green Office Villas topic table.
func Default() *Table {
	t, err := Load(strings.NewReader(string(defaultTable)))
	if err != nil {
		panic(err)
	}
	return t
}

// Search returns the first topic with a keyword contained in the lower-cased query.
func (t *Table) Search(query string) (Topic, bool) {
	q := strings.ToLower(query)
	for _, tp := range t.Topics {
		for _, k := range tp.Keywords {
			if strings.Contains(q, k) {
				return tp, true
			}
		}
	}
	return Topic{}, false
}

// Fallback is the generic reply used when nothing matches.
func (t *Table) Fallback() string {
	if t.FallbackMsg != "" {
		return t.FallbackMsg
	}
	return "I can help with Green Office info. Try rephrasing your question."
}

// Facts returns every topic response, used to ground a language model.
func (t *Table) Facts() []string {
	out := make([]string, 0, len(t.Topics))
	for _, tp := range t.Topics {
		out = append(out, tp.Response)
	}
	return out
}
