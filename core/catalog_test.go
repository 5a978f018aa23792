package core

import (
	"context"
	"testing"

	"github.com/ctran-hive/pipeline/internal/hive"
	"github.com/ctran-hive/pipeline/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFlagCatalog_CreatesMissingFlags(t *testing.T) {
	ctx := context.Background()
	store := &hive.MockHiveStore{}
	store.On("GetFlags", mock.Anything).Return([]schema.Flag(nil), nil).Once()
	store.On("WriteFlags", mock.Anything, schema.AllFlags()).Return(nil).Once()

	c := NewFlagCatalog(store)
	f, err := c.Lookup(ctx, "unopened_door")
	require.NoError(t, err)
	assert.Equal(t, schema.FlagUnopenedDoor, f.FlagID)

	_, err = c.Lookup(ctx, "NOT_A_FLAG")
	assert.Error(t, err)

	all, err := c.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(schema.AllFlags()))
	store.AssertExpectations(t)
}

func TestFlagCatalog_UsesStoredFlags(t *testing.T) {
	store := &hive.MockHiveStore{}
	store.On("GetFlags", mock.Anything).Return([]schema.Flag{{FlagID: 3, Name: "UNOPENED_DOOR"}}, nil).Once()

	c := NewFlagCatalog(store)
	f, err := c.Lookup(context.Background(), " Unopened_Door ")
	require.NoError(t, err)
	assert.Equal(t, schema.FlagID(3), f.FlagID)
	store.AssertNotCalled(t, "WriteFlags", mock.Anything, mock.Anything)
}
