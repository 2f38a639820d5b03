package gamification

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"github.com/comrade-fit/comrade/internal/domain"
)

//go:embed catalog.toml
var defaultCatalogTOML string

var validate = validator.New()

// catalogFile is the on-disk shape of an achievement catalog.
type catalogFile struct {
	Achievements []domain.AchievementDefinition `toml:"achievement"`
}

// DefaultCatalog returns the built-in achievement catalog.
func DefaultCatalog() []domain.AchievementDefinition {
	defs, err := parseCatalog(defaultCatalogTOML)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return defs
}

// LoadCatalog reads a catalog from path. An empty path yields the default.
func LoadCatalog(path string) ([]domain.AchievementDefinition, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return ReadCatalog(f)
}

// ReadCatalog decodes and validates a TOML catalog.
func ReadCatalog(r io.Reader) ([]domain.AchievementDefinition, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return parseCatalog(string(data))
}

func parseCatalog(data string) ([]domain.AchievementDefinition, error) {
	var file catalogFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCatalog, err)
	}
	if err := ValidateCatalog(file.Achievements); err != nil {
		return nil, err
	}
	return file.Achievements, nil
}

// ValidateCatalog checks every definition's fields and id uniqueness.
func ValidateCatalog(defs []domain.AchievementDefinition) error {
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		if err := validate.Struct(def); err != nil {
			return fmt.Errorf("%w: entry %d (%s): %v", domain.ErrInvalidCatalog, i, def.ID, err)
		}
		if def.RequirementType != domain.ReqSpecial && def.RequirementValue == nil {
			return fmt.Errorf("%w: entry %d (%s): requirement_value is required for %s",
				domain.ErrInvalidCatalog, i, def.ID, def.RequirementType)
		}
		if seen[def.ID] {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCatalogID, def.ID)
		}
		seen[def.ID] = true
	}
	return nil
}

// PublicCatalog drops secret entries the user has not unlocked.
func PublicCatalog(defs []domain.AchievementDefinition, unlocked map[string]bool) []domain.AchievementDefinition {
	out := make([]domain.AchievementDefinition, 0, len(defs))
	for _, def := range defs {
		if def.IsSecret && !unlocked[def.ID] {
			continue
		}
		out = append(out, def)
	}
	return out
}
