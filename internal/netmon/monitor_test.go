package netmon

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvEdge(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for connectivity event")
		return false
	}
}

func assertNoEdge(t *testing.T, ch <-chan bool) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected connectivity event: %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeDeliversCurrentStateImmediately(t *testing.T) {
	m := New(true, slog.Default())

	ch := m.Subscribe()
	assert.True(t, recvEdge(t, ch))
}

func TestReportEmitsOncePerTransition(t *testing.T) {
	m := New(true, slog.Default())
	ch := m.Subscribe()
	require.True(t, recvEdge(t, ch))

	m.Report(false)
	assert.False(t, recvEdge(t, ch))

	// Duplicate reports are suppressed.
	m.Report(false)
	m.Report(false)
	assertNoEdge(t, ch)

	m.Report(true)
	assert.True(t, recvEdge(t, ch))
	assert.True(t, m.Online())
}

func TestMultipleSubscribersSeeEdges(t *testing.T) {
	m := New(false, slog.Default())

	a := m.Subscribe()
	b := m.Subscribe()
	require.False(t, recvEdge(t, a))
	require.False(t, recvEdge(t, b))

	m.Report(true)
	assert.True(t, recvEdge(t, a))
	assert.True(t, recvEdge(t, b))
}

func TestFlappingDeliversEveryEdgeExactlyOnce(t *testing.T) {
	m := New(false, slog.Default())
	ch := m.Subscribe()
	require.False(t, recvEdge(t, ch))

	m.Report(true)
	m.Report(false)
	m.Report(true)

	assert.True(t, recvEdge(t, ch))
	assert.False(t, recvEdge(t, ch))
	assert.True(t, recvEdge(t, ch))
	assertNoEdge(t, ch)
}
