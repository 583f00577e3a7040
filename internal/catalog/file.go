package catalog

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"nutriplay-engine/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type fileCatalog struct {
	Games []domain.Game `yaml:"games"`
}

// LoadFile reads a YAML catalog and validates every entry.
func LoadFile(path string) (map[string]domain.Game, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) (map[string]domain.Game, error) {
	var doc fileCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	games := make(map[string]domain.Game, len(doc.Games))
	for _, g := range doc.Games {
		if err := Validate(g); err != nil {
			return nil, err
		}
		if _, dup := games[g.ID]; dup {
			return nil, fmt.Errorf("duplicate game id %q", g.ID)
		}
		games[g.ID] = g
	}
	return games, nil
}

// Validate checks a catalog entry: explicit kind, level bounds and a well-formed bank.
func Validate(g domain.Game) error {
	if _, err := domain.ParseGameKind(string(g.Kind)); err != nil {
		return fmt.Errorf("game %q: %w", g.ID, err)
	}
	if err := validate.Struct(g); err != nil {
		return fmt.Errorf("game %q: %w", g.ID, err)
	}
	return nil
}
