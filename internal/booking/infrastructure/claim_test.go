package infrastructure

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	zapAdapter "github.com/mateusmacedo/go-busbooking/pkg/infrastructure/zaplogger/adapter"
)

// testSeatClaims roda o mesmo contrato contra qualquer implementação.
func testSeatClaims(t *testing.T, claims domain.SeatClaimRepository) {
	ctx := context.Background()
	route := "route-" + uuid.New().String()[:8]
	ref := func(name string) string { return route + "-" + name }

	t.Run("claim is all or nothing", func(t *testing.T) {
		require.NoError(t, claims.Claim(ctx, route, ref("a"), []int{1, 2}))

		err := claims.Claim(ctx, route, ref("b"), []int{2, 3})
		assert.ErrorIs(t, err, domain.ErrSeatUnavailable)

		claimed, err := claims.Claimed(ctx, route)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{1: ref("a"), 2: ref("a")}, claimed)
	})

	t.Run("a reference holds one booking at a time", func(t *testing.T) {
		err := claims.Claim(ctx, route, ref("a"), []int{5})
		assert.ErrorIs(t, err, domain.ErrReferenceInUse)

		claimed, err := claims.Claimed(ctx, route)
		require.NoError(t, err)
		assert.NotContains(t, claimed, 5)
	})

	t.Run("reclaim tolerates the reference's own seats", func(t *testing.T) {
		require.NoError(t, claims.Reclaim(ctx, route, ref("a"), []int{1, 2}))
		require.NoError(t, claims.Reclaim(ctx, route, ref("a"), []int{2, 4}))

		claimed, err := claims.Claimed(ctx, route)
		require.NoError(t, err)
		assert.Equal(t, ref("a"), claimed[4])

		err = claims.Reclaim(ctx, route+"-elsewhere", ref("a"), []int{1})
		assert.ErrorIs(t, err, domain.ErrReferenceInUse)
	})

	t.Run("release frees only the reference's seats", func(t *testing.T) {
		require.NoError(t, claims.Claim(ctx, route, ref("c"), []int{9}))
		require.NoError(t, claims.Release(ctx, route, ref("a")))

		claimed, err := claims.Claimed(ctx, route)
		require.NoError(t, err)
		assert.Equal(t, map[int]string{9: ref("c")}, claimed)

		require.NoError(t, claims.Release(ctx, route, ref("unknown")))
	})

	t.Run("released reference can book again", func(t *testing.T) {
		require.NoError(t, claims.Claim(ctx, route, ref("a"), []int{1}))
		require.NoError(t, claims.Release(ctx, route, ref("a")))
	})

	t.Run("routes are independent", func(t *testing.T) {
		other := route + "-other"
		require.NoError(t, claims.Claim(ctx, other, ref("d"), []int{9}))
		require.NoError(t, claims.Release(ctx, other, ref("d")))
	})

	t.Run("concurrent claims on one seat have one winner", func(t *testing.T) {
		contested := route + "-contested"
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := claims.Claim(ctx, contested, uuid.New().String(), []int{12}); err == nil {
					wins.Add(1)
				} else {
					assert.ErrorIs(t, err, domain.ErrSeatUnavailable)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("concurrent claims with one reference have one winner", func(t *testing.T) {
		shared := route + "-shared"
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(seat int) {
				defer wg.Done()
				if err := claims.Claim(ctx, shared, ref("retry"), []int{seat}); err == nil {
					wins.Add(1)
				} else {
					assert.ErrorIs(t, err, domain.ErrReferenceInUse)
				}
			}(i + 1)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())

		claimed, err := claims.Claimed(ctx, shared)
		require.NoError(t, err)
		assert.Len(t, claimed, 1)
	})
}

func TestInMemorySeatClaims(t *testing.T) {
	testSeatClaims(t, NewInMemorySeatClaimRepository(zapAdapter.NewFromZap(zaptest.NewLogger(t))))
}

func TestInMemorySeatClaimsHonourCancelledContext(t *testing.T) {
	claims := NewInMemorySeatClaimRepository(zapAdapter.NewFromZap(zaptest.NewLogger(t)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, claims.Claim(ctx, "r1", "ref", []int{1}), context.Canceled)
	_, err := claims.Claimed(ctx, "r1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGormSeatClaims(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set; skipping postgres seat claim tests")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	claims, err := NewGormSeatClaimRepository(db, zapAdapter.NewFromZap(zaptest.NewLogger(t)))
	require.NoError(t, err)
	testSeatClaims(t, claims)
}
