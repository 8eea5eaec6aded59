package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lineacaptura/pkg/domain"
)

func loadSeed(t *testing.T) *InMemoryStore {
	t.Helper()
	s, err := LoadSeedFile(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	return s
}

func TestLoadSeedFile(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	a, err := s.FindAuthority(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ARTF", a.ShortCode)
	assert.Equal(t, "100", a.AdminUnit)

	svcs, err := s.FindServices(ctx, []domain.ServiceID{11, 10})
	require.NoError(t, err)
	require.Len(t, svcs, 2)
	assert.Equal(t, domain.ServiceID(10), svcs[0].ID)
	assert.True(t, svcs[0].UnitFee.Equal(decimal.RequireFromString("500.00")))
	assert.True(t, svcs[0].Taxed)
	assert.True(t, svcs[1].UnitFee.Equal(decimal.RequireFromString("123.45")))

	_, err = LoadSeedFile(filepath.Join("testdata", "missing.yaml"))
	assert.Error(t, err)
}

func TestInMemoryStore(t *testing.T) {
	s := loadSeed(t)
	ctx := context.Background()

	t.Run("unknown authority", func(t *testing.T) {
		_, err := s.FindAuthority(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("authorities sorted by name", func(t *testing.T) {
		list, err := s.ListAuthorities(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Agencia Reguladora del Transporte Ferroviario", list[0].Name)
	})

	t.Run("primary services only", func(t *testing.T) {
		list, err := s.ListPrimaryServices(ctx, "ARTF")
		require.NoError(t, err)
		require.Len(t, list, 2)
		for _, svc := range list {
			assert.Equal(t, "P", svc.GroupingType)
		}
		assert.Equal(t, "ARTF-01-001", list[0].Homoclave)
	})

	t.Run("missing ids skipped and duplicates collapsed", func(t *testing.T) {
		list, err := s.FindServices(ctx, []domain.ServiceID{20, 404, 20})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, domain.ServiceID(20), list[0].ID)
	})
}
