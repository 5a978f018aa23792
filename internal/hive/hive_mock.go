package hive

import (
	"context"
	"time"

	"github.com/ctran-hive/pipeline/internal/contract"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/stretchr/testify/mock"
)

// MockStoreManager is a mock implementation of StoreManager for testing.
type MockStoreManager struct {
	mock.Mock
}

var _ contract.StoreManager = &MockStoreManager{} // Compile-time check

// GetHiveStore implements the StoreManager interface.
func (m *MockStoreManager) GetHiveStore() contract.HiveStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.HiveStore)
	return store
}

// GetSourceStore implements the StoreManager interface.
func (m *MockStoreManager) GetSourceStore() contract.SourceStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.SourceStore)
	return store
}

// MockSourceStore is a mock implementation of SourceStore for testing.
type MockSourceStore struct {
	mock.Mock
}

var _ contract.SourceStore = &MockSourceStore{} // Compile-time check

// QueryDateRange implements the SourceStore interface.
func (m *MockSourceStore) QueryDateRange(ctx context.Context, start, end time.Time) ([]schema.Record, error) {
	args := m.Called(ctx, start, end)
	records, _ := args.Get(0).([]schema.Record)
	return records, args.Error(1)
}

// CreateTable implements the SourceStore interface.
func (m *MockSourceStore) CreateTable(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// DropTable implements the SourceStore interface.
func (m *MockSourceStore) DropTable(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// InsertRecords implements the SourceStore interface.
func (m *MockSourceStore) InsertRecords(ctx context.Context, records []schema.Record) error {
	return m.Called(ctx, records).Error(0)
}

// Close implements the SourceStore interface.
func (m *MockSourceStore) Close() error {
	return m.Called().Error(0)
}

// MockHiveStore is a mock implementation of HiveStore for testing.
type MockHiveStore struct {
	mock.Mock
}

var _ contract.HiveStore = &MockHiveStore{} // Compile-time check

// GetOrCreateServiceKey implements the HiveStore interface.
func (m *MockHiveStore) GetOrCreateServiceKey(ctx context.Context, period schema.ServicePeriod) (int64, error) {
	args := m.Called(ctx, period)
	return args.Get(0).(int64), args.Error(1)
}

// WriteRows implements the HiveStore interface.
func (m *MockHiveStore) WriteRows(ctx context.Context, rows []schema.FlaggedRow) error {
	return m.Called(ctx, rows).Error(0)
}

// LatestProcessedDay implements the HiveStore interface.
func (m *MockHiveStore) LatestProcessedDay(ctx context.Context) (time.Time, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

// DeleteDateRange implements the HiveStore interface.
func (m *MockHiveStore) DeleteDateRange(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

// WriteFlags implements the HiveStore interface.
func (m *MockHiveStore) WriteFlags(ctx context.Context, flags []schema.Flag) error {
	return m.Called(ctx, flags).Error(0)
}

// GetFlags implements the HiveStore interface.
func (m *MockHiveStore) GetFlags(ctx context.Context) ([]schema.Flag, error) {
	args := m.Called(ctx)
	flags, _ := args.Get(0).([]schema.Flag)
	return flags, args.Error(1)
}

// CreateSchema implements the HiveStore interface.
func (m *MockHiveStore) CreateSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// DropSchema implements the HiveStore interface.
func (m *MockHiveStore) DropSchema(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// CreateTables implements the HiveStore interface.
func (m *MockHiveStore) CreateTables(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// DropTables implements the HiveStore interface.
func (m *MockHiveStore) DropTables(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// CreateFlagViews implements the HiveStore interface.
func (m *MockHiveStore) CreateFlagViews(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// GetStatus implements the HiveStore interface.
func (m *MockHiveStore) GetStatus(ctx context.Context) (schema.HiveStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(schema.HiveStatus), args.Error(1)
}

// GetAllFlaggedRows implements the HiveStore interface.
func (m *MockHiveStore) GetAllFlaggedRows(ctx context.Context) ([]schema.FlaggedRecord, error) {
	args := m.Called(ctx)
	rows, _ := args.Get(0).([]schema.FlaggedRecord)
	return rows, args.Error(1)
}

// Close implements the HiveStore interface.
func (m *MockHiveStore) Close() error {
	return m.Called().Error(0)
}
