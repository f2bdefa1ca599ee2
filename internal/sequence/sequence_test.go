package sequence

import (
	"context"
	"errors"
	"testing"

	"backoffice-service/internal/models"
	"backoffice-service/internal/store"
	"backoffice-service/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	assert.Equal(t, "INV-0001", Format("INV-", 1))
	assert.Equal(t, "QUO-0420", Format("QUO-", 420))
	assert.Equal(t, "RET-12345", Format("RET-", 12345))
}

func TestPrefixFallsBackToDefaults(t *testing.T) {
	assert.Equal(t, DefaultInvoicePrefix, Prefix(nil, KindInvoice))
	assert.Equal(t, DefaultRepairPrefix, Prefix(&models.TenantSettings{}, KindRepair))
	assert.Equal(t, "R/", Prefix(&models.TenantSettings{ReturnPrefix: "R/"}, KindReturn))
}

func TestNextIsGapFreePerKind(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	var got []string
	for i := 0; i < 3; i++ {
		require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
			n, err := Next(ctx, tx, nil, KindInvoice)
			got = append(got, n)
			return err
		}))
	}
	require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
		n, err := Next(ctx, tx, nil, KindQuotation)
		got = append(got, n)
		return err
	}))

	assert.Equal(t, []string{"INV-0001", "INV-0002", "INV-0003", "QUO-0001"}, got)
}

func TestNextRollsBackWithTheUnitOfWork(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.WithTx(ctx, "t1", func(tx store.Tx) error {
		if _, err := Next(ctx, tx, nil, KindReturn); err != nil {
			return err
		}
		return errors.New("document insert failed")
	})
	require.Error(t, err)

	var n string
	require.NoError(t, s.WithTx(ctx, "t1", func(tx store.Tx) error {
		var err error
		n, err = Next(ctx, tx, nil, KindReturn)
		return err
	}))
	assert.Equal(t, "RET-0001", n)
}

func TestNextCountersAreTenantScoped(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	for _, tenant := range []string{"a", "b"} {
		var n string
		require.NoError(t, s.WithTx(ctx, tenant, func(tx store.Tx) error {
			var err error
			n, err = Next(ctx, tx, nil, KindInvoice)
			return err
		}))
		assert.Equal(t, "INV-0001", n)
	}
}
