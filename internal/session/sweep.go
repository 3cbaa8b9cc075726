// internal/session/sweep.go
package session

import (
	"context"
	"time"
)

// staleActionAge bounds how long rate-limit entries for silent connections
// are kept before the sweep discards them.
const staleActionAge = time.Minute

// RunSweeper periodically reclaims expired lobbies and everything attached
// to them: their timers, seat bookkeeping, and stale rate-limit entries. It
// blocks until ctx is cancelled, so callers run it in its own goroutine.
func (o *Orchestrator) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(o.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.sweep()
		}
	}
}

func (o *Orchestrator) sweep() {
	removed := o.store.CleanupExpired(o.opts.LobbyTTL, o.opts.DisconnectTTL)
	for _, code := range removed {
		o.stopAllTimers(code)
		o.mu.Lock()
		delete(o.members, code)
		o.mu.Unlock()
	}
	if len(removed) > 0 {
		o.log.WithField("cleaned", len(removed)).Info("lobby sweep completed")
	}

	// Orphaned timers whose lobby vanished by another path.
	o.mu.Lock()
	var orphans []string
	for code := range o.questionTimers {
		if _, ok := o.store.Get(code); !ok {
			orphans = append(orphans, code)
		}
	}
	for code := range o.judgingTimers {
		if _, ok := o.store.Get(code); !ok {
			orphans = append(orphans, code)
		}
	}
	o.mu.Unlock()
	for _, code := range orphans {
		o.stopAllTimers(code)
	}

	// Rate-limit entries for connections that went quiet.
	now := o.now()
	o.mu.Lock()
	for connID, last := range o.lastAction {
		if now.Sub(last) > staleActionAge {
			delete(o.lastAction, connID)
		}
	}
	o.mu.Unlock()
}
