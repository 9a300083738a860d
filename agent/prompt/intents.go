package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	"gopkg.in/yaml.v3"
)

//go:embed template/intents.yaml
var intentsRaw []byte

// Intent describes one routing candidate as shown to the classifier.
type Intent struct {
	Name        contractx.Destination `yaml:"name"`
	Description string                `yaml:"description"`
	Default     bool                  `yaml:"default"`
}

type intentFile struct {
	Intents []Intent `yaml:"intents"`
}

// LoadIntents returns the embedded intent catalog.
func LoadIntents() ([]Intent, error) {
	return ParseIntents(intentsRaw)
}

// ParseIntents decodes and checks an intent catalog. Every destination must
// appear exactly once and the default destination must be the only default.
func ParseIntents(raw []byte) ([]Intent, error) {
	var file intentFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: decode intents: %v", contractx.ErrConfiguration, err)
	}

	seen := make(map[contractx.Destination]bool, len(file.Intents))
	defaults := 0
	out := make([]Intent, 0, len(file.Intents))
	for _, in := range file.Intents {
		name, ok := contractx.ParseDestination(string(in.Name))
		if !ok {
			return nil, fmt.Errorf("%w: unknown intent name=%q", contractx.ErrConfiguration, in.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate intent name=%q", contractx.ErrConfiguration, name)
		}
		seen[name] = true

		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			return nil, fmt.Errorf("%w: intent=%s has no description", contractx.ErrConfiguration, name)
		}
		if in.Default {
			if name != contractx.DestinationDefault {
				return nil, fmt.Errorf("%w: intent=%s cannot be the default", contractx.ErrConfiguration, name)
			}
			defaults++
		}
		out = append(out, Intent{Name: name, Description: desc, Default: in.Default})
	}

	if defaults != 1 {
		return nil, fmt.Errorf("%w: expected exactly one default intent, got %d", contractx.ErrConfiguration, defaults)
	}
	for _, d := range contractx.Destinations() {
		if !seen[d] {
			return nil, fmt.Errorf("%w: intent=%s is not described", contractx.ErrConfiguration, d)
		}
	}
	return out, nil
}
