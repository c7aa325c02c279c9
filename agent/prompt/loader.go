package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/scorer.txt
	scorerRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Scorer string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Scorer: strings.TrimSpace(scorerRaw),
	}
}
