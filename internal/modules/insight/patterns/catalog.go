package patterns

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

const catalogEnvVar = "PATTERN_CATALOG_YAML"

// Pattern kinds. Each kind is scored by the same detector with a different
// predicate; the catalog stores them as tagged variants.
const (
	KindNarrative   = "narrative"
	KindHealth      = "health"
	KindEnvironment = "environment"
	KindCombined    = "combined"
)

// Fixed confidences for predicate-based kinds. Narrative confidence is
// derived from trigger hits instead.
const (
	healthConfidence      = 0.9
	environmentConfidence = 0.9
	combinedConfidence    = 0.95

	narrativeBase    = 0.5
	narrativePerHit  = 0.15
	narrativeCeiling = 0.95
)

// ThresholdCond is a numeric predicate over one biometric metric.
type ThresholdCond struct {
	Metric    string  `yaml:"metric"`
	Op        string  `yaml:"op"`
	Threshold float64 `yaml:"threshold"`
}

// Pattern is one catalog record. Kind selects which fields are meaningful:
// narrative uses Triggers, health uses Health, environment uses Weather,
// combined uses Health and Weather together.
type Pattern struct {
	ID       string         `yaml:"id"`
	Category string         `yaml:"category"`
	Kind     string         `yaml:"-"`
	Triggers []string       `yaml:"triggers"`
	Health   *ThresholdCond `yaml:"-"`
	Weather  string         `yaml:"weather"`
}

type healthEntry struct {
	ID        string  `yaml:"id"`
	Category  string  `yaml:"category"`
	Metric    string  `yaml:"metric"`
	Op        string  `yaml:"op"`
	Threshold float64 `yaml:"threshold"`
}

type combinedEntry struct {
	ID       string        `yaml:"id"`
	Category string        `yaml:"category"`
	Health   ThresholdCond `yaml:"health"`
	Weather  string        `yaml:"weather"`
}

type catalogFile struct {
	Catalog     string          `yaml:"catalog"`
	Narrative   []Pattern       `yaml:"narrative"`
	Health      []healthEntry   `yaml:"health"`
	Environment []Pattern       `yaml:"environment"`
	Combined    []combinedEntry `yaml:"combined"`
}

// Catalog holds the flattened pattern list in file order.
type Catalog struct {
	Patterns []Pattern
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
	catalogErr  error
)

// LoadCatalog parses the embedded catalog once and caches it. An env var can
// point at an alternate file for local experiments.
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
			return nil, fmt.Errorf("read pattern catalog %q: %w", path, err)
		}
	} else {
		data, err = fs.ReadFile(catalogFS, "catalog.yaml")
		if err != nil {
			return nil, fmt.Errorf("read embedded pattern catalog: %w", err)
		}
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse pattern catalog: %w", err)
	}

	cat := &Catalog{}
	for _, p := range file.Narrative {
		p.Kind = KindNarrative
		for i, t := range p.Triggers {
			p.Triggers[i] = strings.ToLower(strings.TrimSpace(t))
		}
		cat.Patterns = append(cat.Patterns, p)
	}
	for _, h := range file.Health {
		cat.Patterns = append(cat.Patterns, Pattern{
			ID:       h.ID,
			Category: h.Category,
			Kind:     KindHealth,
			Health:   &ThresholdCond{Metric: h.Metric, Op: h.Op, Threshold: h.Threshold},
		})
	}
	for _, p := range file.Environment {
		p.Kind = KindEnvironment
		p.Weather = strings.ToLower(strings.TrimSpace(p.Weather))
		cat.Patterns = append(cat.Patterns, p)
	}
	for _, c := range file.Combined {
		health := c.Health
		cat.Patterns = append(cat.Patterns, Pattern{
			ID:       c.ID,
			Category: c.Category,
			Kind:     KindCombined,
			Health:   &health,
			Weather:  strings.ToLower(strings.TrimSpace(c.Weather)),
		})
	}

	if err := validateCatalog(cat); err != nil {
		return nil, err
	}
	return cat, nil
}

var validOps = map[string]bool{"lt": true, "lte": true, "gt": true, "gte": true}

var validMetrics = map[string]bool{
	types.MetricRestingHeartRate: true,
	types.MetricHRV:              true,
	types.MetricStrain:           true,
	types.MetricRecoveryScore:    true,
	types.MetricSleepHours:       true,
}

func validateCatalog(cat *Catalog) error {
	if len(cat.Patterns) == 0 {
		return fmt.Errorf("pattern catalog is empty")
	}
	seen := map[string]bool{}
	for _, p := range cat.Patterns {
		if p.ID == "" {
			return fmt.Errorf("pattern catalog: record with empty id")
		}
		if seen[p.ID] {
			return fmt.Errorf("pattern catalog: duplicate id %q", p.ID)
		}
		seen[p.ID] = true
		if p.Category == "" {
			return fmt.Errorf("pattern %q: empty category", p.ID)
		}
		switch p.Kind {
		case KindNarrative:
			if len(p.Triggers) == 0 {
				return fmt.Errorf("pattern %q: narrative pattern without triggers", p.ID)
			}
		case KindHealth:
			if err := validateCond(p.ID, p.Health); err != nil {
				return err
			}
		case KindEnvironment:
			if p.Weather == "" {
				return fmt.Errorf("pattern %q: environment pattern without weather", p.ID)
			}
		case KindCombined:
			if err := validateCond(p.ID, p.Health); err != nil {
				return err
			}
			if p.Weather == "" {
				return fmt.Errorf("pattern %q: combined pattern without weather", p.ID)
			}
		default:
			return fmt.Errorf("pattern %q: unknown kind %q", p.ID, p.Kind)
		}
	}
	return nil
}

func validateCond(id string, c *ThresholdCond) error {
	if c == nil {
		return fmt.Errorf("pattern %q: missing health condition", id)
	}
	if !validMetrics[c.Metric] {
		return fmt.Errorf("pattern %q: unknown metric %q", id, c.Metric)
	}
	if !validOps[c.Op] {
		return fmt.Errorf("pattern %q: unknown op %q", id, c.Op)
	}
	return nil
}
