package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"backoffice-service/internal/apperr"
	"backoffice-service/internal/models"
	"backoffice-service/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")
	p := f.product("P", 10)
	f.purchase(p, 5, 4, 1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = make(map[string]bool)
		short   int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			inv, err := f.o.CreateInvoice(f.ctx, f.actor, &CreateInvoiceRequest{CustomerID: c, LineItems: []LineItemRequest{f.line(p, 1)}})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, apperr.ErrInsufficientStock) {
					short++
				}
				return
			}
			numbers[inv.InvoiceNumber] = true
		}()
	}
	wg.Wait()

	assert.Len(t, numbers, 5)
	assert.Equal(t, 5, short)
	assert.Equal(t, 0, f.stock(p))
	assertDecimal(t, -50, f.balance(c))
}

func TestTenantLocksAreIndependent(t *testing.T) {
	locks := NewTenantLocks()
	unlockA := locks.Lock("a")

	done := make(chan struct{})
	go func() {
		unlock := locks.Lock("b")
		unlock()
		close(done)
	}()
	<-done

	unlockA()
	locks.Lock("a")()
}

func TestNotifierFailureDoesNotFailWorkflow(t *testing.T) {
	failing := NotifierFunc(func(context.Context, string, ...string) error {
		return errors.New("broker down")
	})
	o := NewOrchestrator(memstore.New(), nil, failing, Defaults{})

	c, err := o.CreateCustomer(context.Background(), Actor{TenantID: "t"}, "Ada")
	require.NoError(t, err)
	assert.NotZero(t, c.ID)
}

func TestSettingsDefaults(t *testing.T) {
	f := newFixture(t)
	c := f.customer("Ada")

	inv := f.invoice(c, LineItemRequest{Description: "Labour", Quantity: 1, UnitPrice: decPtr(10)})

	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, testNow.AddDate(0, 0, 14), inv.DueDate)

	_, err := f.o.SaveSettings(f.ctx, f.actor, &models.TenantSettings{InvoicePrefix: "IN V"})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}
