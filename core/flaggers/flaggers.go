// Package flaggers has the fixed set of rules that flag suspicious stop events.
package flaggers

import (
	"github.com/ctran-hive/pipeline/core"
)

// RowRules returns every per-row rule in evaluation order.
func RowRules() []core.RowRule {
	return []core.RowRule{
		UnobservedStop{},
		UnopenedDoor{},
		Latitude{},
		Longitude{},
		AbnormalDwell{},
		NegativeLoad{},
		MissingData{},
		AbnormalSpeed{},
		LeaveBeforeArrive{},
	}
}

// DefaultRegistry registers every row rule and, when withDuplicates is set,
// the duplicate batch rule.
func DefaultRegistry(withDuplicates bool) (*core.Registry, error) {
	registry := core.NewRegistry()
	for _, rule := range RowRules() {
		if err := registry.Register(rule); err != nil {
			return nil, err
		}
	}
	if withDuplicates {
		if err := registry.RegisterBatch(Duplicate{}); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// value dereferences a nullable field, treating nil as zero.
func value(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}
