package gamification_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/comrade-fit/comrade/internal/app/gamification"
	"github.com/comrade-fit/comrade/internal/domain"
)

func TestDefaultCatalog_Valid(t *testing.T) {
	catalog := gamification.DefaultCatalog()
	if len(catalog) == 0 {
		t.Fatal("default catalog is empty")
	}
	if err := gamification.ValidateCatalog(catalog); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
}

func TestDefaultCatalog_SpecialNamesResolve(t *testing.T) {
	covered := make(map[domain.SpecialCondition]bool)
	for _, def := range gamification.DefaultCatalog() {
		if def.RequirementType != domain.ReqSpecial {
			continue
		}
		cond := domain.SpecialConditionFor(def.Name)
		if cond == domain.SpecialUnknown {
			t.Errorf("special achievement %q has no matching condition", def.Name)
		}
		covered[cond] = true
	}
	for _, cond := range domain.AllSpecialConditions() {
		if !covered[cond] {
			t.Errorf("condition %q has no catalog entry", cond)
		}
	}
}

func TestReadCatalog(t *testing.T) {
	src := `
[[achievement]]
id = "first"
name = "First"
requirement_type = "workouts"
requirement_value = 1
rarity = "common"
xp_reward = 10

[[achievement]]
id = "owl"
name = "Night Owl"
requirement_type = "special"
rarity = "rare"
is_secret = true
`
	defs, err := gamification.ReadCatalog(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadCatalog: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(defs))
	}
	if defs[0].Requirement() != 1 || defs[1].RequirementValue != nil || !defs[1].IsSecret {
		t.Errorf("decoded %+v", defs)
	}
}

func TestReadCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{
			"duplicate id",
			"[[achievement]]\nid=\"a\"\nname=\"A\"\nrequirement_type=\"prs\"\nrequirement_value=1\nrarity=\"common\"\n" +
				"[[achievement]]\nid=\"a\"\nname=\"B\"\nrequirement_type=\"prs\"\nrequirement_value=2\nrarity=\"common\"\n",
			domain.ErrDuplicateCatalogID,
		},
		{
			"missing requirement value",
			"[[achievement]]\nid=\"a\"\nname=\"A\"\nrequirement_type=\"workouts\"\nrarity=\"common\"\n",
			domain.ErrInvalidCatalog,
		},
		{
			"unknown rarity",
			"[[achievement]]\nid=\"a\"\nname=\"A\"\nrequirement_type=\"workouts\"\nrequirement_value=1\nrarity=\"mythic\"\n",
			domain.ErrInvalidCatalog,
		},
		{
			"unknown requirement type",
			"[[achievement]]\nid=\"a\"\nname=\"A\"\nrequirement_type=\"calories\"\nrequirement_value=1\nrarity=\"common\"\n",
			domain.ErrInvalidCatalog,
		},
		{
			"negative value",
			"[[achievement]]\nid=\"a\"\nname=\"A\"\nrequirement_type=\"workouts\"\nrequirement_value=-1\nrarity=\"common\"\n",
			domain.ErrInvalidCatalog,
		},
		{
			"not toml",
			"[[achievement",
			domain.ErrInvalidCatalog,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gamification.ReadCatalog(strings.NewReader(tt.src))
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	defs, err := gamification.LoadCatalog("")
	if err != nil || len(defs) != len(gamification.DefaultCatalog()) {
		t.Fatalf("empty path should load the default catalog: %d, %v", len(defs), err)
	}

	path := filepath.Join(t.TempDir(), "catalog.toml")
	src := "[[achievement]]\nid=\"x\"\nname=\"X\"\nrequirement_type=\"streak\"\nrequirement_value=3\nrarity=\"epic\"\n"
	if err := os.WriteFile(path, []byte(src), 0600); err != nil {
		t.Fatal(err)
	}
	defs, err = gamification.LoadCatalog(path)
	if err != nil || len(defs) != 1 || defs[0].ID != "x" {
		t.Fatalf("LoadCatalog(file) = %+v, %v", defs, err)
	}

	if _, err := gamification.LoadCatalog(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestPublicCatalog_HidesLockedSecrets(t *testing.T) {
	catalog := []domain.AchievementDefinition{
		{ID: "open"},
		{ID: "secret", IsSecret: true},
		{ID: "found", IsSecret: true},
	}
	got := gamification.PublicCatalog(catalog, map[string]bool{"found": true})
	if len(got) != 2 || got[0].ID != "open" || got[1].ID != "found" {
		t.Errorf("got %+v", got)
	}
}
