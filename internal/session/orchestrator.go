// internal/session/orchestrator.go
package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lovelobby/server/internal/lobby"
)

// Options carries the real-time knobs the orchestrator needs. TickInterval
// exists so tests can run the question timer fast; production uses one second.
type Options struct {
	JudgingTimeout    time.Duration
	RateLimitInterval time.Duration
	TickInterval      time.Duration
	LobbyTTL          time.Duration
	DisconnectTTL     time.Duration
	SweepInterval     time.Duration

	// VerifyToken, when set, checks a reconnect token's signature and returns
	// the code and role embedded in it, so forged tokens are rejected before
	// any store lookup. The store's equality check stays authoritative.
	VerifyToken func(token string) (code string, role string, err error)
}

// Orchestrator wraps the lobby store with everything real-time: connection
// bookkeeping, per-lobby question and judging timers, rate limiting, and
// broadcast fan-out to the two participants of each lobby. It never mutates
// lobby state itself; every mutation goes through a store transition, which
// serializes timer-driven and client-driven commands on the same per-lobby
// lock.
type Orchestrator struct {
	store *lobby.Store
	log   *logrus.Logger
	opts  Options

	// now is injectable for deterministic timer tests.
	now func() time.Time

	mu             sync.Mutex
	conns          map[string]*Conn                // connID -> conn
	members        map[string]map[lobby.Role]*Conn // code -> seat -> conn
	questionTimers map[string]chan struct{}        // code -> stop channel
	judgingTimers  map[string]*time.Timer          // code -> one-shot timer
	lastAction     map[string]time.Time            // connID -> last mutating action
}

// New builds an orchestrator over the given store.
func New(store *lobby.Store, log *logrus.Logger, opts Options) *Orchestrator {
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Orchestrator{
		store:          store,
		log:            log,
		opts:           opts,
		now:            time.Now,
		conns:          make(map[string]*Conn),
		members:        make(map[string]map[lobby.Role]*Conn),
		questionTimers: make(map[string]chan struct{}),
		judgingTimers:  make(map[string]*time.Timer),
		lastAction:     make(map[string]time.Time),
	}
}

// SetClock overrides the orchestrator's clock. Test hook.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
}

// Register makes a connection known to the orchestrator.
func (o *Orchestrator) Register(c *Conn) {
	o.mu.Lock()
	o.conns[c.ID] = c
	o.mu.Unlock()
}

// seat binds a connection to one side of a lobby for broadcast fan-out.
func (o *Orchestrator) seat(code string, role lobby.Role, c *Conn) {
	o.mu.Lock()
	m, ok := o.members[code]
	if !ok {
		m = make(map[lobby.Role]*Conn)
		o.members[code] = m
	}
	m[role] = c
	o.mu.Unlock()
}

func (o *Orchestrator) unseat(code string, c *Conn) {
	o.mu.Lock()
	if m, ok := o.members[code]; ok {
		for role, conn := range m {
			if conn == c {
				delete(m, role)
			}
		}
		if len(m) == 0 {
			delete(o.members, code)
		}
	}
	o.mu.Unlock()
}

// broadcastState sends a full snapshot to both participants of the lobby.
// The snapshot is a deep copy, so marshaling happens outside any lobby lock.
func (o *Orchestrator) broadcastState(snap *lobby.Lobby) {
	msg := map[string]interface{}{
		"type":  EventState,
		"lobby": snap,
	}
	for _, c := range o.seatedConns(snap.Code) {
		c.Write(msg)
	}
}

func (o *Orchestrator) seatedConns(code string) []*Conn {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*Conn, 0, 2)
	for _, c := range o.members[code] {
		out = append(out, c)
	}
	return out
}

func (o *Orchestrator) hostConn(code string) *Conn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.members[code][lobby.RoleHost]
}

// isRateLimited enforces one state-mutating action per connection per
// interval. Limited callers are silently dropped.
func (o *Orchestrator) isRateLimited(connID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	if last, ok := o.lastAction[connID]; ok && now.Sub(last) < o.opts.RateLimitInterval {
		return true
	}
	o.lastAction[connID] = now
	return false
}

// HandleMessage dispatches one inbound client event. Payloads are validated
// before any state transition; validation failures produce an error message
// and no mutation.
func (o *Orchestrator) HandleMessage(c *Conn, msgType string, raw json.RawMessage) {
	// Live drafts bypass the rate limiter so typing previews stay smooth.
	if msgType != EventDraftUpdate && o.isRateLimited(c.ID) {
		return
	}

	switch msgType {
	case EventCreate:
		o.handleCreate(c, raw)
	case EventJoin:
		o.handleJoin(c, raw)
	case EventReconnect:
		o.handleReconnect(c, raw)
	case EventLeave:
		o.handleLeave(c)
	case EventSelectPack:
		o.handleSelectPack(c, raw)
	case EventHostAnswer:
		o.handleHostAnswer(c, raw)
	case EventSetupComplete:
		o.handleSetupComplete(c)
	case EventStartGame:
		o.handleStartGame(c)
	case EventDraftUpdate:
		o.handleDraft(c, raw)
	case EventSubmitAnswer:
		o.handleSubmit(c, raw)
	case EventJudge:
		o.handleJudge(c, raw)
	case EventRestart:
		o.handleRestart(c, raw)
	default:
		o.log.Debugf("session: unknown event %q from conn %s", msgType, c.ID)
	}
}

func (o *Orchestrator) handleCreate(c *Conn, raw json.RawMessage) {
	var p CreateLobbyPayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	snap, token, err := o.store.Create(c.ID, p.HostName)
	switch {
	case errors.Is(err, lobby.ErrAtCapacity):
		c.WriteError("Server is at capacity. Please try again later.")
		return
	case err != nil:
		c.WriteError("Could not create lobby. Please try again.")
		return
	}
	o.seat(snap.Code, lobby.RoleHost, c)
	c.Write(map[string]interface{}{
		"type":  EventCreated,
		"code":  snap.Code,
		"lobby": snap,
		"token": token,
	})
	o.log.WithFields(logrus.Fields{"code": snap.Code}).Info("lobby created")
}

func (o *Orchestrator) handleJoin(c *Conn, raw json.RawMessage) {
	var p JoinLobbyPayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	snap, token, err := o.store.Join(p.Code, c.ID, p.PlayerName)
	switch {
	case errors.Is(err, lobby.ErrNotFound):
		c.WriteError("Lobby not found. Check the code and try again.")
		return
	case errors.Is(err, lobby.ErrLobbyFull):
		c.WriteError("Lobby is full. Someone else already joined.")
		return
	case err != nil:
		c.WriteError("Could not join lobby. Please try again.")
		return
	}
	o.seat(snap.Code, lobby.RolePlayer, c)
	c.Write(map[string]interface{}{
		"type":  EventJoined,
		"lobby": snap,
		"token": token,
	})
	o.broadcastState(snap)
}

func (o *Orchestrator) handleReconnect(c *Conn, raw json.RawMessage) {
	var p ReconnectPayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	// Reject forged tokens before the store sees them; the embedded claims
	// must match the payload's code and role.
	if o.opts.VerifyToken != nil {
		code, role, err := o.opts.VerifyToken(p.Token)
		if err != nil || code != p.Code || role != p.Role {
			c.WriteError("Could not reconnect. Lobby may have expired.")
			return
		}
	}
	snap, err := o.store.Reconnect(p.Code, c.ID, lobby.Role(p.Role), p.Token)
	if err != nil {
		c.WriteError("Could not reconnect. Lobby may have expired.")
		return
	}
	o.seat(snap.Code, lobby.Role(p.Role), c)
	c.Write(map[string]interface{}{
		"type":  EventJoined,
		"lobby": snap,
		"token": p.Token,
	})

	// Resume ticking if a question was live and both sides are back.
	if snap.Phase == lobby.PhaseInProgress && snap.HostConnected && snap.PlayerConnected && !o.questionTimerRunning(snap.Code) {
		o.startQuestionTimer(snap.Code)
	}
	o.broadcastState(snap)
}

func (o *Orchestrator) handleLeave(c *Conn) {
	code, _, ok := o.store.RouteFor(c.ID)
	if ok {
		o.unseat(code, c)
		// Either side leaving cancels both timer classes so the lobby cannot
		// self-advance with a participant gone.
		o.stopAllTimers(code)
	}
	snap, err := o.store.Leave(c.ID)
	if err == nil {
		o.broadcastState(snap)
	}
}

func (o *Orchestrator) handleSelectPack(c *Conn, raw json.RawMessage) {
	var p SelectPackPayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	code, ok := o.requireRole(c, lobby.RoleHost)
	if !ok {
		return
	}
	snap, err := o.store.SelectPack(code, p.PackID)
	if err != nil {
		c.WriteError("Cannot change pack now. Start fresh if needed.")
		return
	}
	o.broadcastState(snap)
}

func (o *Orchestrator) handleHostAnswer(c *Conn, raw json.RawMessage) {
	var p HostAnswerPayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	code, ok := o.requireRole(c, lobby.RoleHost)
	if !ok {
		return
	}
	snap, err := o.store.SetHostAnswer(code, p.Index, p.QuestionID, p.Value)
	if err != nil {
		return
	}
	o.broadcastState(snap)
}

func (o *Orchestrator) handleSetupComplete(c *Conn) {
	code, ok := o.requireRole(c, lobby.RoleHost)
	if !ok {
		return
	}
	snap, err := o.store.CompleteHostSetup(code)
	if err != nil {
		c.WriteError("Please answer all 10 questions first")
		return
	}
	o.broadcastState(snap)
}

func (o *Orchestrator) handleStartGame(c *Conn) {
	code, ok := o.requireRole(c, lobby.RoleHost)
	if !ok {
		return
	}
	snap, err := o.store.StartGame(code)
	switch {
	case errors.Is(err, lobby.ErrPlayerMissing):
		c.WriteError("Waiting for player to connect")
		return
	case err != nil:
		c.WriteError("Cannot start game yet. Complete setup first.")
		return
	}
	o.broadcastState(snap)
	o.startQuestionTimer(code)
}

func (o *Orchestrator) handleDraft(c *Conn, raw json.RawMessage) {
	var p DraftPayload
	if err := decode(raw, &p); err != nil {
		return
	}
	code, role, ok := o.store.RouteFor(c.ID)
	if !ok || role != lobby.RolePlayer {
		return
	}
	snap, err := o.store.UpdateDraft(code, p.Index, p.Text)
	if err != nil || !snap.HostConnected {
		return
	}
	// Drafts go to the host only and are never broadcast.
	if host := o.hostConn(code); host != nil {
		host.Write(map[string]interface{}{
			"type":  EventDraft,
			"index": p.Index,
			"text":  p.Text,
		})
	}
}

func (o *Orchestrator) handleSubmit(c *Conn, raw json.RawMessage) {
	var p PlayerAnswerPayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	code, ok := o.requireRole(c, lobby.RolePlayer)
	if !ok {
		return
	}
	snap, err := o.store.SubmitAnswer(code, p.Index, p.Value, false)
	if err != nil {
		// Rejected submits leave the countdown running.
		c.WriteError("Cannot submit answer now")
		return
	}
	o.stopQuestionTimer(code)
	o.broadcastState(snap)
	if snap.Phase == lobby.PhaseJudging {
		o.startJudgingTimer(code)
	}
}

func (o *Orchestrator) handleJudge(c *Conn, raw json.RawMessage) {
	var p JudgePayload
	if err := decode(raw, &p); err != nil {
		c.WriteError(err.Error())
		return
	}
	code, ok := o.requireRole(c, lobby.RoleHost)
	if !ok {
		return
	}
	o.cancelJudgingTimer(code)
	snap, err := o.store.Judge(code, p.Index, p.IsCorrect)
	if err != nil {
		c.WriteError("Not in judging phase")
		return
	}
	o.broadcastState(snap)
	if snap.Phase == lobby.PhaseInProgress {
		o.startQuestionTimer(code)
	}
}

func (o *Orchestrator) handleRestart(c *Conn, raw json.RawMessage) {
	var p RestartPayload
	if len(raw) > 0 {
		// Restart payload is optional; a malformed one is just ignored.
		_ = json.Unmarshal(raw, &p)
	}
	code, ok := o.requireRole(c, lobby.RoleHost)
	if !ok {
		return
	}
	o.stopQuestionTimer(code)
	o.cancelJudgingTimer(code)
	snap, err := o.store.Restart(code, p.PackID)
	if err != nil {
		return
	}
	o.broadcastState(snap)
}

// HandleDisconnect tears down the connection's seat, pauses the question
// timer if a game is live, and broadcasts the updated state to whoever is
// left. The lobby itself survives for the sweep to reclaim.
func (o *Orchestrator) HandleDisconnect(c *Conn) {
	o.mu.Lock()
	delete(o.conns, c.ID)
	delete(o.lastAction, c.ID)
	o.mu.Unlock()

	snap, role, err := o.store.Disconnect(c.ID)
	if err != nil {
		return
	}
	o.unseat(snap.Code, c)
	if snap.Phase == lobby.PhaseInProgress {
		o.stopQuestionTimer(snap.Code)
	}
	o.log.WithFields(logrus.Fields{"code": snap.Code, "role": role}).Info("participant disconnected")
	o.broadcastState(snap)
}

// requireRole resolves the caller's seat and rejects anything but the wanted
// role with a uniform authorization error.
func (o *Orchestrator) requireRole(c *Conn, want lobby.Role) (string, bool) {
	code, role, ok := o.store.RouteFor(c.ID)
	if !ok || role != want {
		c.WriteError("Not authorized")
		return "", false
	}
	return code, true
}

type validatable interface {
	Validate() error
}

func decode(raw json.RawMessage, p validatable) error {
	if err := json.Unmarshal(raw, p); err != nil {
		return errors.New("Invalid JSON format")
	}
	return p.Validate()
}
