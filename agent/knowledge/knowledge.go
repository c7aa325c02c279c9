// Package knowledge answers factual questions about the hotel from an
// embedded topic base.
package knowledge

import (
	_ "embed"
	"fmt"
	"strings"

	configx "github.com/hotelpassarim/concierge/pkg/config"
)

//go:embed topics.yaml
var defaultTopicsYAML []byte

// Topic is one answerable subject with its trigger stems.
type Topic struct {
	Key      string   `mapstructure:"key"`
	Triggers []string `mapstructure:"triggers"`
	Answer   string   `mapstructure:"answer"`
}

type topicsFile struct {
	Topics   []Topic `mapstructure:"topics"`
	Fallback string  `mapstructure:"fallback"`
}

// Base holds the loaded topics in declaration order; the first trigger match
// wins.
type Base struct {
	topics   []Topic
	fallback string
}

func LoadDefault() (*Base, error) {
	raw, err := configx.DecodeYAML[topicsFile](defaultTopicsYAML)
	if err != nil {
		return nil, fmt.Errorf("decode knowledge topics: %w", err)
	}
	return &Base{topics: raw.Topics, fallback: strings.TrimSpace(raw.Fallback)}, nil
}

func MustLoadDefault() *Base {
	b, err := LoadDefault()
	if err != nil {
		panic(err)
	}
	return b
}

// Answer matches the normalized guest text against topic triggers. The
// second return reports whether a topic matched or the fallback was used.
func (b *Base) Answer(normalizedText string) (string, bool) {
	for _, t := range b.topics {
		for _, trigger := range t.Triggers {
			if strings.Contains(normalizedText, trigger) {
				return t.Answer, true
			}
		}
	}
	return b.fallback, false
}

// Topics exposes the topic keys, mostly for quick replies.
func (b *Base) Topics() []string {
	keys := make([]string, 0, len(b.topics))
	for _, t := range b.topics {
		keys = append(keys, t.Key)
	}
	return keys
}
