package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rabota-krsk/rabota-bot/internal/domain"
)

func TestMemoryLedger_CreditAndBalance(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	balance, err := l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Kopecks(0), balance)

	require.NoError(t, l.Credit(ctx, 1, domain.Rub(300)))
	require.NoError(t, l.Credit(ctx, 1, domain.Rub(100)))

	balance, err = l.Balance(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Rub(400), balance)
}

func TestMemoryLedger_DebitInsufficient(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Credit(ctx, 7, domain.Rub(100)))

	err := l.Debit(ctx, 7, domain.Rub(160))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// failed debit leaves the balance untouched
	balance, err := l.Balance(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, domain.Rub(100), balance)
}

func TestMemoryLedger_DebitExact(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Credit(ctx, 5, domain.Rub(160)))
	require.NoError(t, l.Debit(ctx, 5, domain.Rub(160)))

	balance, err := l.Balance(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, domain.Kopecks(0), balance)
}

func TestMemoryLedger_RejectsNonPositiveAmounts(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	assert.Error(t, l.Credit(ctx, 1, 0))
	assert.Error(t, l.Credit(ctx, 1, domain.Rub(-10)))
	assert.Error(t, l.Debit(ctx, 1, 0))
	assert.Error(t, l.Debit(ctx, 1, domain.Rub(-10)))
}

func TestMemoryLedger_CanAfford(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	require.NoError(t, l.Credit(ctx, 2, domain.Rub(256)))

	ok, err := l.CanAfford(ctx, 2, domain.Rub(256))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.CanAfford(ctx, 2, domain.Rub(257))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryLedger_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	const (
		workers = 10
		price   = 160
	)

	// funds for exactly three debits
	require.NoError(t, l.Credit(ctx, 42, domain.Rub(3*price)))

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- l.Debit(ctx, 42, domain.Rub(price))
		}()
	}

	wg.Wait()
	close(errCh)

	var succeeded, rejected int
	for err := range errCh {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrInsufficientFunds):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, workers-3, rejected)

	balance, err := l.Balance(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, domain.Kopecks(0), balance)
}
