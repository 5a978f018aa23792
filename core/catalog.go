package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
)

// FlagCatalog looks flags up by name. It loads the flags table on first use
// and writes the enumeration into it when the table is empty.
type FlagCatalog struct {
	store contract.FlagStore

	mu     sync.Mutex
	byName map[string]schema.Flag
	flags  []schema.Flag
}

// NewFlagCatalog creates a catalog over the flag store.
func NewFlagCatalog(store contract.FlagStore) *FlagCatalog {
	return &FlagCatalog{store: store}
}

func (c *FlagCatalog) load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byName != nil {
		return nil
	}

	flags, err := c.store.GetFlags(ctx)
	if err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}
	if len(flags) == 0 {
		flags = schema.AllFlags()
		if err := c.store.WriteFlags(ctx, flags); err != nil {
			return fmt.Errorf("failed to create flags: %w", err)
		}
	}

	c.byName = make(map[string]schema.Flag, len(flags))
	for _, f := range flags {
		c.byName[strings.ToUpper(f.Name)] = f
	}
	c.flags = flags
	return nil
}

// Lookup returns the flag with the given name, case-insensitively.
func (c *FlagCatalog) Lookup(ctx context.Context, name string) (schema.Flag, error) {
	if err := c.load(ctx); err != nil {
		return schema.Flag{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.byName[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return schema.Flag{}, fmt.Errorf("unknown flag %q", name)
	}
	return f, nil
}

// All returns every flag ordered as stored.
func (c *FlagCatalog) All(ctx context.Context) ([]schema.Flag, error) {
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]schema.Flag, len(c.flags))
	copy(out, c.flags)
	return out, nil
}
