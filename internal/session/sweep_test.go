// internal/session/sweep_test.go
package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepReclaimsExpiredLobby(t *testing.T) {
	o, store, clock := newTestOrchestrator(Options{
		TickInterval:   10 * time.Millisecond,
		JudgingTimeout: time.Hour,
		LobbyTTL:       30 * time.Minute,
		DisconnectTTL:  5 * time.Minute,
	})
	g := startGame(t, o, store)
	require.True(t, o.questionTimerRunning(g.code))

	clock.Advance(31 * time.Minute)
	o.sweep()

	_, ok := store.Get(g.code)
	assert.False(t, ok)
	assert.False(t, o.questionTimerRunning(g.code))
	assert.Empty(t, o.seatedConns(g.code))
}

func TestSweepKeepsLiveLobby(t *testing.T) {
	o, store, clock := newTestOrchestrator(Options{
		TickInterval:   time.Hour,
		JudgingTimeout: time.Hour,
		LobbyTTL:       30 * time.Minute,
		DisconnectTTL:  5 * time.Minute,
	})
	g := startGame(t, o, store)

	clock.Advance(10 * time.Minute)
	o.sweep()

	_, ok := store.Get(g.code)
	assert.True(t, ok)
}

func TestSweepReclaimsAbandonedLobby(t *testing.T) {
	o, store, clock := newTestOrchestrator(Options{
		TickInterval:   time.Hour,
		JudgingTimeout: time.Hour,
		LobbyTTL:       30 * time.Minute,
		DisconnectTTL:  5 * time.Minute,
	})
	g := startGame(t, o, store)

	o.HandleDisconnect(g.player)
	o.HandleDisconnect(g.host)

	clock.Advance(6 * time.Minute)
	o.sweep()

	_, ok := store.Get(g.code)
	assert.False(t, ok)
}

func TestSweepPrunesStaleRateLimitEntries(t *testing.T) {
	o, _, clock := newTestOrchestrator(Options{
		TickInterval:      time.Hour,
		JudgingTimeout:    time.Hour,
		RateLimitInterval: 100 * time.Millisecond,
		LobbyTTL:          30 * time.Minute,
		DisconnectTTL:     5 * time.Minute,
	})

	c := NewConn("c1", func() {})
	o.Register(c)
	o.isRateLimited(c.ID)

	o.mu.Lock()
	_, tracked := o.lastAction[c.ID]
	o.mu.Unlock()
	require.True(t, tracked)

	clock.Advance(2 * time.Minute)
	o.sweep()

	o.mu.Lock()
	_, tracked = o.lastAction[c.ID]
	o.mu.Unlock()
	assert.False(t, tracked)
}
