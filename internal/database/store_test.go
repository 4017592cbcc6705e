package database

import (
	"context"
	"testing"

	"tire-shop/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStore_Local(t *testing.T) {
	cfg := &config.Config{
		Store: config.StoreConfig{Driver: "local"},
		Local: config.LocalConfig{DataDir: t.TempDir()},
	}

	store, err := OpenStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, store.Products)
	assert.NotNil(t, store.Carts)
	assert.NotNil(t, store.Users)
	assert.NoError(t, store.Ping(context.Background()))
	assert.NoError(t, store.Close(context.Background()))
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "cassandra"}}

	_, err := OpenStore(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
