// Package plans holds the static subscription plan table. Plans ship with
// the binary as an embedded YAML manifest and never change at runtime.
package plans

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var manifest []byte

// Plan is one purchasable subscription tier.
type Plan struct {
	Type     string   `yaml:"type" json:"type"`
	Months   int      `yaml:"months" json:"months"`
	Price    int      `yaml:"price" json:"price"`
	Features []string `yaml:"features" json:"features"`
}

// Registry holds the loaded plans, indexed by plan type.
type Registry struct {
	plans map[string]Plan
}

// Load parses the embedded manifest into a registry. Unknown YAML fields are
// rejected to catch manifest typos at startup.
func Load() (*Registry, error) {
	return parse(manifest)
}

func parse(data []byte) (*Registry, error) {
	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse plan manifest: %w", err)
	}

	reg := &Registry{plans: make(map[string]Plan, len(doc.Plans))}
	for _, p := range doc.Plans {
		if p.Type == "" {
			return nil, fmt.Errorf("plan manifest entry missing type")
		}
		if p.Months < 1 {
			return nil, fmt.Errorf("plan %q: months must be at least 1", p.Type)
		}
		if p.Price < 0 {
			return nil, fmt.Errorf("plan %q: price cannot be negative", p.Type)
		}
		if _, exists := reg.plans[p.Type]; exists {
			return nil, fmt.Errorf("duplicate plan type: %s", p.Type)
		}
		reg.plans[p.Type] = p
	}
	if len(reg.plans) == 0 {
		return nil, fmt.Errorf("plan manifest contains no plans")
	}
	return reg, nil
}

// Get retrieves a plan by type.
func (r *Registry) Get(planType string) (Plan, bool) {
	p, ok := r.plans[planType]
	return p, ok
}

// List returns all plans sorted by duration, then price.
func (r *Registry) List() []Plan {
	list := make([]Plan, 0, len(r.plans))
	for _, p := range r.plans {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Months != list[j].Months {
			return list[i].Months < list[j].Months
		}
		return list[i].Price < list[j].Price
	})
	return list
}
