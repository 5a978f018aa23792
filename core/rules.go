package core

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/ctran-hive/pipeline/schema"
)

// RowRule inspects one record and returns the flags it raises.
// Implementations must not retain the record.
type RowRule interface {
	Name() string
	Flag(rec schema.Record, cfg *schema.RuleConfig) ([]schema.FlagID, error)
}

// BatchRule inspects the whole extract at once. The duplicate rule is the only one.
type BatchRule interface {
	Name() string
	Flag(batch []schema.Record, cfg *schema.RuleConfig) ([]schema.DuplicateRow, error)
}

// Registry holds the per-row rules and at most one batch rule.
type Registry struct {
	rows  []RowRule
	names map[string]struct{}
	batch BatchRule
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a per-row rule. Names are unique and the duplicate rule name is reserved.
func (r *Registry) Register(rule RowRule) error {
	name := rule.Name()
	if name == schema.DuplicateRuleName {
		return fmt.Errorf("rule name %q is reserved for the batch duplicate rule", name)
	}
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("rule %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.rows = append(r.rows, rule)
	return nil
}

// RegisterBatch sets the batch rule. Only one may be registered.
func (r *Registry) RegisterBatch(rule BatchRule) error {
	if r.batch != nil {
		return fmt.Errorf("batch rule %q already registered", r.batch.Name())
	}
	r.batch = rule
	return nil
}

// RowRules returns the per-row rules in registration order.
func (r *Registry) RowRules() []RowRule {
	return slices.Clone(r.rows)
}

// BatchRule returns the batch rule, or nil when none is registered.
func (r *Registry) BatchRule() BatchRule {
	return r.batch
}

// Engine evaluates the per-row rules of a registry with fault isolation.
type Engine struct {
	registry *Registry
	logger   *slog.Logger
	failures atomic.Int64
}

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(registry *Registry, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{registry: registry, logger: logger}
}

// Evaluate returns the union of the flags raised by every row rule, sorted by id.
// A failing or panicking rule contributes nothing and evaluation continues.
func (e *Engine) Evaluate(rec schema.Record, cfg *schema.RuleConfig) []schema.FlagID {
	var set []schema.FlagID
	for _, rule := range e.registry.rows {
		flags, err := e.runRule(rule, rec, cfg)
		if err != nil {
			e.failures.Add(1)
			e.logger.Warn("rule evaluation failed",
				slog.String("rule", rule.Name()),
				slog.Int64("row_id", rec.RowID),
				slog.Any("error", err))
			continue
		}
		for _, f := range flags {
			if !slices.Contains(set, f) {
				set = append(set, f)
			}
		}
	}
	slices.Sort(set)
	return set
}

// Failures returns how many rule evaluations failed so far.
func (e *Engine) Failures() int64 {
	return e.failures.Load()
}

func (e *Engine) runRule(rule RowRule, rec schema.Record, cfg *schema.RuleConfig) (flags []schema.FlagID, err error) {
	defer func() {
		if p := recover(); p != nil {
			flags = nil
			err = fmt.Errorf("%w: panic: %v", ErrRuleEvaluation, p)
		}
	}()
	flags, err = rule.Flag(rec, cfg)
	if err != nil && !errors.Is(err, ErrRuleEvaluation) {
		err = fmt.Errorf("%w: %w", ErrRuleEvaluation, err)
	}
	return flags, err
}
