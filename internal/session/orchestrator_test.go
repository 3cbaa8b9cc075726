// internal/session/orchestrator_test.go
package session

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lovelobby/server/internal/auth"
	"github.com/lovelobby/server/internal/lobby"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// newTestOrchestrator wires a store and orchestrator to one fake clock.
func newTestOrchestrator(opts Options) (*Orchestrator, *lobby.Store, *fakeClock) {
	store := lobby.NewStore(100)
	clock := newFakeClock()
	store.Now = clock.Now
	o := New(store, quietLogger(), opts)
	o.SetClock(clock.Now)
	return o, store, clock
}

func mustRaw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

// recv waits for the next outbound message of the wanted type, skipping any
// others (timer ticks in particular).
func recv(t *testing.T, c *Conn, wantType string) map[string]interface{} {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.Out:
			if msg["type"] == wantType {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q on conn %s", wantType, c.ID)
			return nil
		}
	}
}

// recvState waits for a lobby:state broadcast matching the predicate.
func recvState(t *testing.T, c *Conn, pred func(*lobby.Lobby) bool) *lobby.Lobby {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-c.Out:
			if msg["type"] != EventState {
				continue
			}
			snap, ok := msg["lobby"].(*lobby.Lobby)
			require.True(t, ok)
			if pred(snap) {
				return snap
			}
		case <-deadline:
			t.Fatalf("timed out waiting for matching state on conn %s", c.ID)
			return nil
		}
	}
}

func drain(c *Conn) {
	for {
		select {
		case <-c.Out:
		default:
			return
		}
	}
}

// assertSilent fails if any message arrives on the conn within the window.
func assertSilent(t *testing.T, c *Conn, window time.Duration) {
	t.Helper()
	select {
	case msg := <-c.Out:
		t.Fatalf("expected silence on conn %s, got %v", c.ID, msg["type"])
	case <-time.After(window):
	}
}

type gameConns struct {
	code        string
	host        *Conn
	player      *Conn
	hostToken   string
	playerToken string
}

// startGame drives a lobby from creation into a running first question.
func startGame(t *testing.T, o *Orchestrator, store *lobby.Store) gameConns {
	t.Helper()

	host := NewConn("host-conn", func() {})
	o.Register(host)
	o.HandleMessage(host, EventCreate, mustRaw(t, map[string]interface{}{"hostName": "Alex"}))
	created := recv(t, host, EventCreated)
	code := created["code"].(string)
	hostToken := created["token"].(string)

	player := NewConn("player-conn", func() {})
	o.Register(player)
	o.HandleMessage(player, EventJoin, mustRaw(t, map[string]interface{}{
		"code": code, "playerName": "Sam",
	}))
	joined := recv(t, player, EventJoined)
	playerToken := joined["token"].(string)
	drain(host)

	snap, ok := store.Get(code)
	require.True(t, ok)
	for i, q := range snap.Questions {
		o.HandleMessage(host, EventHostAnswer, mustRaw(t, map[string]interface{}{
			"index": i, "questionId": q.ID, "value": "truth",
		}))
		drain(host)
		drain(player)
	}
	o.HandleMessage(host, EventSetupComplete, nil)
	o.HandleMessage(host, EventStartGame, nil)
	started := recvState(t, host, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseInProgress })
	require.Equal(t, 0, started.CurrentIndex)
	drain(host)
	drain(player)

	return gameConns{code: code, host: host, player: player, hostToken: hostToken, playerToken: playerToken}
}

func TestCreateAndJoin(t *testing.T) {
	o, _, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})

	host := NewConn("h1", func() {})
	o.Register(host)
	o.HandleMessage(host, EventCreate, mustRaw(t, map[string]interface{}{"hostName": "Alex"}))

	created := recv(t, host, EventCreated)
	assert.Regexp(t, `^[0-9]{5}$`, created["code"])
	assert.NotEmpty(t, created["token"])

	player := NewConn("p1", func() {})
	o.Register(player)
	o.HandleMessage(player, EventJoin, mustRaw(t, map[string]interface{}{
		"code": created["code"], "playerName": "Sam",
	}))

	joined := recv(t, player, EventJoined)
	assert.NotEmpty(t, joined["token"])

	// Host learns about the join through a state broadcast.
	snap := recvState(t, host, func(l *lobby.Lobby) bool { return l.PlayerConnected })
	assert.Equal(t, "Sam", snap.Player.Name)
}

func TestCreateRejectsBadName(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})

	c := NewConn("h1", func() {})
	o.Register(c)
	o.HandleMessage(c, EventCreate, mustRaw(t, map[string]interface{}{"hostName": "   "}))

	msg := recv(t, c, EventError)
	assert.Equal(t, "Name must be 1-20 characters", msg["message"])
	assert.Equal(t, 0, store.Count())
}

func TestJoinUnknownCode(t *testing.T) {
	o, _, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})

	c := NewConn("p1", func() {})
	o.Register(c)
	o.HandleMessage(c, EventJoin, mustRaw(t, map[string]interface{}{
		"code": "12345", "playerName": "Sam",
	}))

	msg := recv(t, c, EventError)
	assert.Equal(t, "Lobby not found. Check the code and try again.", msg["message"])
}

func TestPlayerCannotJudge(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})
	g := startGame(t, o, store)

	o.HandleMessage(g.player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 0, "value": "a guess",
	}))
	recvState(t, g.player, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })

	o.HandleMessage(g.player, EventJudge, mustRaw(t, map[string]interface{}{
		"index": 0, "isCorrect": true,
	}))
	msg := recv(t, g.player, EventError)
	assert.Equal(t, "Not authorized", msg["message"])

	snap, _ := store.Get(g.code)
	assert.Empty(t, snap.Verdicts)
}

func TestRateLimitDropsRapidActions(t *testing.T) {
	o, store, clock := newTestOrchestrator(Options{
		TickInterval:      time.Hour,
		JudgingTimeout:    time.Hour,
		RateLimitInterval: 100 * time.Millisecond,
	})

	host := NewConn("h1", func() {})
	o.Register(host)
	o.HandleMessage(host, EventCreate, mustRaw(t, map[string]interface{}{"hostName": "Alex"}))
	created := recv(t, host, EventCreated)
	code := created["code"].(string)

	// Within the interval the next action is silently dropped.
	o.HandleMessage(host, EventSelectPack, mustRaw(t, map[string]interface{}{"packId": "memories"}))
	assertSilent(t, host, 50*time.Millisecond)
	snap, _ := store.Get(code)
	assert.NotEqual(t, "memories", snap.PackID)

	// After the interval the same action goes through.
	clock.Advance(200 * time.Millisecond)
	o.HandleMessage(host, EventSelectPack, mustRaw(t, map[string]interface{}{"packId": "memories"}))
	got := recvState(t, host, func(l *lobby.Lobby) bool { return l.PackID == "memories" })
	assert.Len(t, got.Questions, 10)
}

func TestDraftsBypassRateLimit(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:      time.Hour,
		JudgingTimeout:    time.Hour,
		RateLimitInterval: time.Hour,
	})

	host := NewConn("host-conn", func() {})
	player := NewConn("player-conn", func() {})
	o.Register(host)
	o.Register(player)

	// Drive setup through the store so the hour-long limit only ever faces
	// socket traffic from this test's events.
	snap, _, err := store.Create(host.ID, "Alex")
	require.NoError(t, err)
	code := snap.Code
	_, _, err = store.Join(code, player.ID, "Sam")
	require.NoError(t, err)
	for i, q := range snap.Questions {
		_, err = store.SetHostAnswer(code, i, q.ID, "truth")
		require.NoError(t, err)
	}
	_, err = store.CompleteHostSetup(code)
	require.NoError(t, err)
	_, err = store.StartGame(code)
	require.NoError(t, err)
	o.seat(code, lobby.RoleHost, host)
	o.seat(code, lobby.RolePlayer, player)

	for _, text := range []string{"p", "pi", "piz", "pizz", "pizza"} {
		o.HandleMessage(player, EventDraftUpdate, mustRaw(t, map[string]interface{}{
			"index": 0, "text": text,
		}))
	}
	for i := 0; i < 5; i++ {
		msg := recv(t, host, EventDraft)
		assert.Equal(t, 0, msg["index"])
	}
	// Drafts go to the host only.
	assertSilent(t, player, 50*time.Millisecond)

	// Mutating actions from the same connection stay limited.
	o.HandleMessage(player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 0, "value": "first",
	}))
	recvState(t, player, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })
	o.HandleMessage(player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 0, "value": "second",
	}))
	assertSilent(t, player, 50*time.Millisecond)
}

func TestDraftNotForwardedFromHost(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})
	g := startGame(t, o, store)

	o.HandleMessage(g.host, EventDraftUpdate, mustRaw(t, map[string]interface{}{
		"index": 0, "text": "host typing",
	}))
	assertSilent(t, g.host, 50*time.Millisecond)
	assertSilent(t, g.player, 50*time.Millisecond)
}

func TestQuestionTimerAutoSubmits(t *testing.T) {
	o, store, clock := newTestOrchestrator(Options{
		TickInterval:   10 * time.Millisecond,
		JudgingTimeout: time.Hour,
	})
	g := startGame(t, o, store)

	// While the clock stands still the countdown holds at the full budget.
	tick := recv(t, g.player, EventTimerTick)
	assert.Equal(t, 25, tick["secondsLeft"])

	drain(g.host)
	drain(g.player)
	clock.Advance(26 * time.Second)

	snap := recvState(t, g.host, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })
	require.Len(t, snap.PlayerAnswers, 1)
	assert.True(t, snap.PlayerAnswers[0].TimedOut)
	assert.Empty(t, snap.PlayerAnswers[0].Value)

	// The ticker deregisters itself once it has fired.
	assert.Eventually(t, func() bool { return !o.questionTimerRunning(g.code) },
		time.Second, 5*time.Millisecond)
}

func TestJudgingTimeoutAutoAccepts(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:   time.Hour,
		JudgingTimeout: 30 * time.Millisecond,
	})
	g := startGame(t, o, store)

	o.HandleMessage(g.player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 0, "value": "a guess",
	}))
	recvState(t, g.host, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })

	// Host never judges; the timeout accepts the answer and advances.
	snap := recvState(t, g.host, func(l *lobby.Lobby) bool { return l.CurrentIndex == 1 })
	assert.Equal(t, lobby.PhaseInProgress, snap.Phase)
	require.Len(t, snap.Verdicts, 1)
	assert.True(t, snap.Verdicts[0].IsCorrect)
}

func TestManualJudgeCancelsTimeout(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:   time.Hour,
		JudgingTimeout: 50 * time.Millisecond,
	})
	g := startGame(t, o, store)

	o.HandleMessage(g.player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 0, "value": "a guess",
	}))
	recvState(t, g.host, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })

	o.HandleMessage(g.host, EventJudge, mustRaw(t, map[string]interface{}{
		"index": 0, "isCorrect": false,
	}))
	snap := recvState(t, g.host, func(l *lobby.Lobby) bool { return l.CurrentIndex == 1 })
	require.Len(t, snap.Verdicts, 1)
	assert.False(t, snap.Verdicts[0].IsCorrect)

	// The cancelled timeout must not add a second verdict.
	time.Sleep(120 * time.Millisecond)
	after, _ := store.Get(g.code)
	assert.Len(t, after.Verdicts, 1)
	assert.False(t, after.Verdicts[0].IsCorrect)
}

func TestDisconnectPausesAndReconnectResumes(t *testing.T) {
	o, store, clock := newTestOrchestrator(Options{
		TickInterval:   10 * time.Millisecond,
		JudgingTimeout: time.Hour,
	})
	g := startGame(t, o, store)
	require.True(t, o.questionTimerRunning(g.code))

	clock.Advance(5 * time.Second)
	o.HandleDisconnect(g.player)

	snap := recvState(t, g.host, func(l *lobby.Lobby) bool { return !l.PlayerConnected })
	require.NotNil(t, snap.DisconnectedAt)
	assert.False(t, o.questionTimerRunning(g.code))

	// Time passing while paused must not expire the question.
	clock.Advance(2 * time.Minute)

	back := NewConn("player-conn-2", func() {})
	o.Register(back)
	o.HandleMessage(back, EventReconnect, mustRaw(t, map[string]interface{}{
		"code": g.code, "role": "player", "token": g.playerToken,
	}))
	joined := recv(t, back, EventJoined)
	resumed := joined["lobby"].(*lobby.Lobby)
	assert.Nil(t, resumed.DisconnectedAt)
	assert.True(t, o.questionTimerRunning(g.code))

	// The countdown resumes where it left off.
	tick := recv(t, back, EventTimerTick)
	assert.Equal(t, 20, tick["secondsLeft"])
}

func TestReconnectBadToken(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})
	g := startGame(t, o, store)

	o.HandleDisconnect(g.player)
	recvState(t, g.host, func(l *lobby.Lobby) bool { return !l.PlayerConnected })

	back := NewConn("player-conn-2", func() {})
	o.Register(back)
	o.HandleMessage(back, EventReconnect, mustRaw(t, map[string]interface{}{
		"code": g.code, "role": "player", "token": "bogus",
	}))
	msg := recv(t, back, EventError)
	assert.Equal(t, "Could not reconnect. Lobby may have expired.", msg["message"])

	snap, _ := store.Get(g.code)
	assert.False(t, snap.PlayerConnected)
}

func TestRestartStopsTimers(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:   10 * time.Millisecond,
		JudgingTimeout: time.Hour,
	})
	g := startGame(t, o, store)
	require.True(t, o.questionTimerRunning(g.code))

	o.HandleMessage(g.host, EventRestart, mustRaw(t, map[string]interface{}{"packId": "memories"}))
	snap := recvState(t, g.host, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseHostSetup })
	assert.Equal(t, "memories", snap.PackID)
	assert.Empty(t, snap.HostAnswers)

	assert.Eventually(t, func() bool { return !o.questionTimerRunning(g.code) },
		time.Second, 5*time.Millisecond)
}

func TestLeaveDuringJudgingStopsAutoAccept(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:   time.Hour,
		JudgingTimeout: 50 * time.Millisecond,
	})
	g := startGame(t, o, store)

	o.HandleMessage(g.player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 0, "value": "a guess",
	}))
	recvState(t, g.host, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })

	o.HandleMessage(g.host, EventLeave, nil)

	// With the host gone the auto-accept must never fire.
	time.Sleep(150 * time.Millisecond)
	snap, ok := store.Get(g.code)
	require.True(t, ok)
	assert.Equal(t, lobby.PhaseJudging, snap.Phase)
	assert.Empty(t, snap.Verdicts)
	assert.False(t, snap.HostConnected)
}

func TestLeaveStopsQuestionTimer(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:   10 * time.Millisecond,
		JudgingTimeout: time.Hour,
	})
	g := startGame(t, o, store)
	require.True(t, o.questionTimerRunning(g.code))

	// The player side leaving cancels the countdown too.
	o.HandleMessage(g.player, EventLeave, nil)
	assert.False(t, o.questionTimerRunning(g.code))

	snap, _ := store.Get(g.code)
	assert.Equal(t, lobby.PhaseInProgress, snap.Phase)
}

func TestRejectedSubmitKeepsTimer(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{
		TickInterval:   10 * time.Millisecond,
		JudgingTimeout: time.Hour,
	})
	g := startGame(t, o, store)
	require.True(t, o.questionTimerRunning(g.code))

	// A wrong-index submit is rejected and must not kill the countdown.
	o.HandleMessage(g.player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
		"index": 3, "value": "too eager",
	}))
	msg := recv(t, g.player, EventError)
	assert.Equal(t, "Cannot submit answer now", msg["message"])

	assert.True(t, o.questionTimerRunning(g.code))
	snap, _ := store.Get(g.code)
	assert.Equal(t, lobby.PhaseInProgress, snap.Phase)
	assert.Empty(t, snap.PlayerAnswers)

	// Ticks keep flowing for the still-live question.
	recv(t, g.player, EventTimerTick)
}

func TestReconnectChecksTokenSignature(t *testing.T) {
	require.NoError(t, auth.Init())

	store := lobby.NewStore(100)
	clock := newFakeClock()
	store.Now = clock.Now
	store.NewToken = func(code string, role lobby.Role) (string, error) {
		return auth.CreateSessionToken(code, string(role))
	}
	o := New(store, quietLogger(), Options{
		TickInterval:   time.Hour,
		JudgingTimeout: time.Hour,
		VerifyToken:    auth.VerifySessionToken,
	})
	o.SetClock(clock.Now)
	g := startGame(t, o, store)

	o.HandleDisconnect(g.player)
	recvState(t, g.host, func(l *lobby.Lobby) bool { return !l.PlayerConnected })

	back := NewConn("player-conn-2", func() {})
	o.Register(back)

	// Garbage fails signature verification before any store lookup.
	o.HandleMessage(back, EventReconnect, mustRaw(t, map[string]interface{}{
		"code": g.code, "role": "player", "token": "not-a-jwt",
	}))
	msg := recv(t, back, EventError)
	assert.Equal(t, "Could not reconnect. Lobby may have expired.", msg["message"])

	// A validly signed token whose claims name the wrong role is rejected.
	o.HandleMessage(back, EventReconnect, mustRaw(t, map[string]interface{}{
		"code": g.code, "role": "player", "token": g.hostToken,
	}))
	msg = recv(t, back, EventError)
	assert.Equal(t, "Could not reconnect. Lobby may have expired.", msg["message"])

	snap, _ := store.Get(g.code)
	assert.False(t, snap.PlayerConnected)

	// The real credential still works end to end.
	o.HandleMessage(back, EventReconnect, mustRaw(t, map[string]interface{}{
		"code": g.code, "role": "player", "token": g.playerToken,
	}))
	joined := recv(t, back, EventJoined)
	resumed := joined["lobby"].(*lobby.Lobby)
	assert.True(t, resumed.PlayerConnected)
}

func TestFullGameOverSocketEvents(t *testing.T) {
	o, store, _ := newTestOrchestrator(Options{TickInterval: time.Hour, JudgingTimeout: time.Hour})
	g := startGame(t, o, store)

	for i := 0; i < 10; i++ {
		o.HandleMessage(g.player, EventSubmitAnswer, mustRaw(t, map[string]interface{}{
			"index": i, "value": "a guess",
		}))
		recvState(t, g.player, func(l *lobby.Lobby) bool { return l.Phase == lobby.PhaseJudging })
		o.HandleMessage(g.host, EventJudge, mustRaw(t, map[string]interface{}{
			"index": i, "isCorrect": true,
		}))
		drain(g.host)
		drain(g.player)
	}

	snap, _ := store.Get(g.code)
	assert.Equal(t, lobby.PhaseFinished, snap.Phase)
	assert.Len(t, snap.Verdicts, 10)
}
