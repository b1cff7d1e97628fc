package lifestate

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/fathom-backend/internal/types"
)

//go:embed catalog.yaml
var catalogFS embed.FS

const catalogEnvVar = "LIFE_STATE_CATALOG_YAML"

// Bound is an inclusive numeric range; either side may be open.
type Bound struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

func (b *Bound) contains(v float64) bool {
	if b == nil {
		return false
	}
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v > *b.Max {
		return false
	}
	return true
}

// State is one catalog life state with its trigger spec.
type State struct {
	ID               string   `yaml:"id"`
	Label            string   `yaml:"label"`
	ThreadCategories []string `yaml:"thread_categories"`
	Keywords         []string `yaml:"keywords"`
	Sentiment        *Bound   `yaml:"sentiment"`
	Recovery         *Bound   `yaml:"recovery"`
	Mood             *Bound   `yaml:"mood"`
}

type Catalog struct {
	States []State `yaml:"states"`
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
	catalogErr  error
)

// LoadCatalog parses the embedded state catalog once. The catalog is fixed
// at build time; an env var can point at an alternate file for local
// experiments.
func LoadCatalog() (*Catalog, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = readCatalog()
	})
	return catalog, catalogErr
}

func readCatalog() (*Catalog, error) {
	var (
		data []byte
		err  error
	)
	if path := strings.TrimSpace(os.Getenv(catalogEnvVar)); path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read life-state catalog %q: %w", path, err)
		}
	} else {
		data, err = fs.ReadFile(catalogFS, "catalog.yaml")
		if err != nil {
			return nil, fmt.Errorf("read embedded life-state catalog: %w", err)
		}
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse life-state catalog: %w", err)
	}
	for i := range cat.States {
		st := &cat.States[i]
		for j, kw := range st.Keywords {
			st.Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
		for j, c := range st.ThreadCategories {
			st.ThreadCategories[j] = strings.ToLower(strings.TrimSpace(c))
		}
	}
	if err := validateCatalog(&cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

func validateCatalog(cat *Catalog) error {
	if len(cat.States) == 0 {
		return fmt.Errorf("life-state catalog is empty")
	}
	known := map[string]bool{}
	for _, c := range types.ThreadCategories {
		known[c] = true
	}
	seen := map[string]bool{}
	for _, st := range cat.States {
		if st.ID == "" || st.Label == "" {
			return fmt.Errorf("life-state catalog: state with empty id or label")
		}
		if st.ID == DefaultStateID {
			return fmt.Errorf("life-state %q: the default state is implicit, not cataloged", st.ID)
		}
		if seen[st.ID] {
			return fmt.Errorf("life-state catalog: duplicate id %q", st.ID)
		}
		seen[st.ID] = true
		if len(st.ThreadCategories) == 0 && len(st.Keywords) == 0 &&
			st.Sentiment == nil && st.Recovery == nil && st.Mood == nil {
			return fmt.Errorf("life-state %q: no triggers", st.ID)
		}
		for _, c := range st.ThreadCategories {
			if !known[c] {
				return fmt.Errorf("life-state %q: unknown thread category %q", st.ID, c)
			}
		}
		for _, b := range []*Bound{st.Sentiment, st.Recovery, st.Mood} {
			if b != nil && b.Min == nil && b.Max == nil {
				return fmt.Errorf("life-state %q: bound with no limits", st.ID)
			}
			if b != nil && b.Min != nil && b.Max != nil && *b.Min > *b.Max {
				return fmt.Errorf("life-state %q: bound min above max", st.ID)
			}
		}
	}
	return nil
}
