// Package hive is for the flag hive and the transit source tables.
package hive

import (
	"context"
	"fmt"
	"sync"

	"github.com/ctran-hive/pipeline/internal/contract"
)

// StoreManager owns the process-wide hive and source stores.
type StoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	hive         contract.HiveStore
	source       contract.SourceStore
}

var _ contract.StoreManager = &StoreManager{} // Compile-time check

// Global Manager instance for main logic.
var (
	Manager   = &StoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetHiveStore returns the hive store.
func (mgr *StoreManager) GetHiveStore() contract.HiveStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.hive
}

// GetSourceStore returns the source store.
func (mgr *StoreManager) GetSourceStore() contract.SourceStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.source
}

// InitStores initializes the global manager from the validated config.
// Either side is skipped when its backend is empty.
func InitStores(ctx context.Context, cfg *contract.Config) error {
	var initErr error

	initOnce.Do(func() {
		var hiveStore contract.HiveStore
		if cfg.HiveBackend != "" {
			store, err := NewHiveStore(ctx, cfg.HiveBackend, cfg.HiveDBConnect, cfg.HiveSchema)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize hive store: %w", err)
				return
			}
			hiveStore = store
		}

		var sourceStore contract.SourceStore
		if cfg.SourceBackend != "" {
			store, err := NewSourceStore(ctx, cfg.SourceBackend, cfg.SourceDBConnect)
			if err != nil {
				if hiveStore != nil {
					_ = hiveStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize source store: %w", err)
				return
			}
			sourceStore = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.hive = hiveStore
		Manager.source = sourceStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() { // called in main defer
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.hive != nil {
			_ = Manager.hive.Close()
		}
		if Manager.source != nil {
			_ = Manager.source.Close()
		}
	})
}
