// internal/session/timers.go
package session

import (
	"time"

	"github.com/lovelobby/server/internal/lobby"
)

// startQuestionTimer begins the repeating per-second tick for a lobby's live
// question. Starting always cancels any predecessor first, so at most one
// ticker per code exists at any instant.
func (o *Orchestrator) startQuestionTimer(code string) {
	o.mu.Lock()
	if stop, ok := o.questionTimers[code]; ok {
		close(stop)
	}
	stop := make(chan struct{})
	o.questionTimers[code] = stop
	o.mu.Unlock()

	go func() {
		ticker := time.NewTicker(o.opts.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if done := o.tickQuestion(code, stop); done {
					return
				}
			}
		}
	}()
}

// stopQuestionTimer cancels the lobby's ticker if one is registered.
func (o *Orchestrator) stopQuestionTimer(code string) {
	o.mu.Lock()
	if stop, ok := o.questionTimers[code]; ok {
		close(stop)
		delete(o.questionTimers, code)
	}
	o.mu.Unlock()
}

func (o *Orchestrator) questionTimerRunning(code string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.questionTimers[code]
	return ok
}

// clearQuestionTimer removes the registration for a ticker that stopped
// itself, but only if it is still the current one for that code.
func (o *Orchestrator) clearQuestionTimer(code string, stop chan struct{}) {
	o.mu.Lock()
	if cur, ok := o.questionTimers[code]; ok && cur == stop {
		delete(o.questionTimers, code)
	}
	o.mu.Unlock()
}

// tickQuestion runs one tick: compute server-authoritative seconds left,
// broadcast it, and auto-submit an empty timed-out answer at zero. Ticking is
// suspended while the lobby is paused. Returns true when the ticker should
// stop. The auto-submit goes through the same store transition as a manual
// submit, so it cannot race one.
func (o *Orchestrator) tickQuestion(code string, stop chan struct{}) bool {
	snap, ok := o.store.Get(code)
	if !ok || snap.Phase != lobby.PhaseInProgress || snap.QuestionStartAt == nil {
		o.clearQuestionTimer(code, stop)
		return true
	}
	if snap.DisconnectedAt != nil {
		return false // paused: keep running, skip broadcast and expiry
	}

	elapsed := o.now().UnixMilli() - *snap.QuestionStartAt
	secondsLeft := snap.PerQuestionSeconds - int(elapsed/1000)
	if secondsLeft < 0 {
		secondsLeft = 0
	}

	tick := map[string]interface{}{
		"type":        EventTimerTick,
		"secondsLeft": secondsLeft,
	}
	for _, c := range o.seatedConns(code) {
		c.Write(tick)
	}

	if secondsLeft > 0 {
		return false
	}

	o.clearQuestionTimer(code, stop)
	updated, err := o.store.SubmitAnswer(code, snap.CurrentIndex, "", true)
	if err != nil {
		// A manual submit or phase change won the race; nothing to do.
		return true
	}
	o.log.WithField("code", code).Info("question timed out, auto-submitting")
	o.broadcastState(updated)
	if updated.Phase == lobby.PhaseJudging {
		o.startJudgingTimer(code)
	}
	return true
}

// startJudgingTimer arms the one-shot auto-accept for a lobby that just
// entered JUDGING. Any previous judging timer for the code is cancelled
// first.
func (o *Orchestrator) startJudgingTimer(code string) {
	o.mu.Lock()
	if t, ok := o.judgingTimers[code]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(o.opts.JudgingTimeout, func() {
		o.mu.Lock()
		// Stale-timer check: only the currently registered timer may act.
		if o.judgingTimers[code] != timer {
			o.mu.Unlock()
			return
		}
		delete(o.judgingTimers, code)
		o.mu.Unlock()

		snap, ok := o.store.Get(code)
		if !ok || snap.Phase != lobby.PhaseJudging {
			return
		}
		o.log.WithField("code", code).Info("judging timeout, auto-accepting answer")
		updated, err := o.store.Judge(code, snap.CurrentIndex, true)
		if err != nil {
			return
		}
		o.broadcastState(updated)
		if updated.Phase == lobby.PhaseInProgress {
			o.startQuestionTimer(code)
		}
	})
	o.judgingTimers[code] = timer
	o.mu.Unlock()
}

// cancelJudgingTimer stops the pending auto-accept, typically because the
// host judged manually.
func (o *Orchestrator) cancelJudgingTimer(code string) {
	o.mu.Lock()
	if t, ok := o.judgingTimers[code]; ok {
		t.Stop()
		delete(o.judgingTimers, code)
	}
	o.mu.Unlock()
}

// stopAllTimers cancels both timer classes for a code. Used on restart,
// leave, and sweep.
func (o *Orchestrator) stopAllTimers(code string) {
	o.stopQuestionTimer(code)
	o.cancelJudgingTimer(code)
}
