package store

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PrabinKa/ShipMate/internal/domain"
	"github.com/PrabinKa/ShipMate/internal/storage"
)

func testDraft() domain.Draft {
	return domain.Draft{
		RecipientName:    "Asha Gurung",
		RecipientAddress: "Thamel, Kathmandu",
		RecipientContact: "+9779800000000",
		PaymentMethod:    domain.PaymentCOD,
		PaymentStatus:    domain.PaymentStatusPending,
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	region, err := storage.Open(filepath.Join(t.TempDir(), "agent.db"), "pw", slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = region.Close() })
	return New(region, slog.Default())
}

func TestAppendThenListIncludesPendingOrder(t *testing.T) {
	s := newTestStore(t)

	order, err := s.Append(testDraft())
	require.NoError(t, err)
	assert.NotEmpty(t, order.LocalID)
	assert.NotEmpty(t, order.Code)
	assert.Equal(t, domain.SyncPending, order.SyncState)
	assert.Empty(t, order.ServerID)
	assert.Equal(t, domain.StatusPending, order.Status)

	orders, err := s.List()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.LocalID, orders[0].LocalID)
	assert.Equal(t, domain.SyncPending, orders[0].SyncState)
}

func TestAppendPrependsNewest(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Append(testDraft())
	require.NoError(t, err)
	second, err := s.Append(testDraft())
	require.NoError(t, err)

	orders, err := s.List()
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.LocalID, orders[0].LocalID)
	assert.Equal(t, first.LocalID, orders[1].LocalID)
}

func TestMarkSynced(t *testing.T) {
	s := newTestStore(t)

	order, err := s.Append(testDraft())
	require.NoError(t, err)

	require.NoError(t, s.MarkSynced(order.LocalID, "srv-42"))

	orders, err := s.List()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.SyncSynced, orders[0].SyncState)
	assert.Equal(t, "srv-42", orders[0].ServerID)

	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMarkSyncedUnknownIDIsNoOp(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Append(testDraft())
	require.NoError(t, err)

	require.NoError(t, s.MarkSynced("no-such-id", "srv-1"))

	orders, err := s.List()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, domain.SyncPending, orders[0].SyncState)
}

func TestMarkSyncedNeverReassignsServerID(t *testing.T) {
	s := newTestStore(t)

	order, err := s.Append(testDraft())
	require.NoError(t, err)

	require.NoError(t, s.MarkSynced(order.LocalID, "srv-1"))
	require.NoError(t, s.MarkSynced(order.LocalID, "srv-2"))

	orders, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, "srv-1", orders[0].ServerID)
}

func TestMarkFailed(t *testing.T) {
	s := newTestStore(t)

	order, err := s.Append(testDraft())
	require.NoError(t, err)

	require.NoError(t, s.MarkFailed(order.LocalID))

	pending, err := s.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	orders, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, domain.SyncFailed, orders[0].SyncState)
}

func TestPendingFiltersSyncStates(t *testing.T) {
	s := newTestStore(t)

	a, err := s.Append(testDraft())
	require.NoError(t, err)
	b, err := s.Append(testDraft())
	require.NoError(t, err)
	c, err := s.Append(testDraft())
	require.NoError(t, err)

	require.NoError(t, s.MarkSynced(a.LocalID, "srv-a"))
	require.NoError(t, s.MarkFailed(b.LocalID))

	pending, err := s.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, c.LocalID, pending[0].LocalID)
}

func TestOrdersSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.db")

	region, err := storage.Open(path, "pw", slog.Default())
	require.NoError(t, err)
	s := New(region, slog.Default())
	order, err := s.Append(testDraft())
	require.NoError(t, err)
	require.NoError(t, region.Close())

	region2, err := storage.Open(path, "pw", slog.Default())
	require.NoError(t, err)
	defer region2.Close()

	orders, err := New(region2, slog.Default()).List()
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.LocalID, orders[0].LocalID)
}

func TestClockPinsTimestamps(t *testing.T) {
	s := newTestStore(t)
	pinned := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s.WithClock(func() time.Time { return pinned })

	order, err := s.Append(testDraft())
	require.NoError(t, err)
	assert.Equal(t, pinned, order.CreatedAt)
	assert.Equal(t, "ORD-1717243200000", order.Code)
}
