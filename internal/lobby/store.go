// internal/lobby/store.go
package lobby

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lovelobby/server/internal/catalog"
)

const (
	maxNameLen   = 20
	maxAnswerLen = 200

	// codeAttempts bounds rejection sampling for fresh lobby codes. If every
	// attempt collides the store is effectively saturated, so creation fails
	// with ErrAtCapacity rather than reusing a live code.
	codeAttempts = 100
)

// route maps a live connection identity to its seat in a lobby.
type route struct {
	Code string
	Role Role
}

// tokenPair holds the per-role reconnect credentials for one lobby.
type tokenPair struct {
	Host   string
	Player string
}

// entry pairs a lobby with its single-writer mutex. Every mutation of the
// lobby happens with entry.mu held, so timer-driven and client-driven
// transitions for the same code are serialized.
type entry struct {
	mu sync.Mutex
	l  *Lobby
}

// Store owns the authoritative in-memory lobby table plus the routing and
// token tables. It exposes pure state transitions only; timers, broadcasts
// and connection handling live in the session layer.
type Store struct {
	mu      sync.Mutex
	lobbies map[string]*entry
	routes  map[string]route
	tokens  map[string]*tokenPair

	maxLobbies int
	rng        *rand.Rand

	// Now and NewToken are injectable for tests. Now defaults to time.Now;
	// NewToken defaults to a random UUID. A NewToken failure aborts the
	// create or join so no lobby ever holds an empty credential.
	Now      func() time.Time
	NewToken func(code string, role Role) (string, error)

	// PerQuestionSeconds is the time budget stamped onto new lobbies.
	PerQuestionSeconds int
}

// NewStore builds an empty store limited to maxLobbies live lobbies.
func NewStore(maxLobbies int) *Store {
	return &Store{
		lobbies:    make(map[string]*entry),
		routes:     make(map[string]route),
		tokens:     make(map[string]*tokenPair),
		maxLobbies: maxLobbies,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		Now:        time.Now,
		NewToken:   func(string, Role) (string, error) { return uuid.NewString(), nil },

		PerQuestionSeconds: 25,
	}
}

func (s *Store) nowMillis() int64 {
	return s.Now().UnixMilli()
}

// Count returns the number of live lobbies.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lobbies)
}

// generateCodeLocked draws 5-digit codes until one is unused. Caller holds s.mu.
func (s *Store) generateCodeLocked() (string, bool) {
	for i := 0; i < codeAttempts; i++ {
		code := formatCode(10000 + s.rng.Intn(90000))
		if _, taken := s.lobbies[code]; !taken {
			return code, true
		}
	}
	return "", false
}

func formatCode(n int) string {
	// n is always in [10000, 99999], so this is a fixed 5-digit string.
	buf := [5]byte{}
	for i := 4; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}

func sanitizeName(name string) string {
	return truncateRunes(strings.TrimSpace(name), maxNameLen)
}

func sanitizeAnswer(v string) string {
	return truncateRunes(strings.TrimSpace(v), maxAnswerLen)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// Create builds a new lobby with the caller as host and issues the host's
// session token. Fails with ErrAtCapacity when the store is full or no free
// code could be found.
func (s *Store) Create(connID, hostName string) (*Lobby, string, error) {
	now := s.nowMillis()
	pack := catalog.DefaultPack()
	questions, _ := catalog.QuestionsForPack(pack.ID)

	s.mu.Lock()
	if len(s.lobbies) >= s.maxLobbies {
		s.mu.Unlock()
		return nil, "", ErrAtCapacity
	}
	code, ok := s.generateCodeLocked()
	if !ok {
		s.mu.Unlock()
		return nil, "", ErrAtCapacity
	}

	token, err := s.NewToken(code, RoleHost)
	if err != nil {
		s.mu.Unlock()
		return nil, "", fmt.Errorf("minting host token: %w", err)
	}
	l := &Lobby{
		Code:      code,
		CreatedAt: now,
		Host: &Participant{
			ID:       connID,
			Name:     sanitizeName(hostName),
			JoinedAt: now,
		},
		PackID:             pack.ID,
		QuestionIDs:        append([]string(nil), pack.QuestionIDs...),
		Questions:          questions,
		HostAnswers:        []HostAnswer{},
		PlayerAnswers:      []PlayerAnswer{},
		Phase:              PhaseWaitingForPlayers,
		PerQuestionSeconds: s.PerQuestionSeconds,
		Verdicts:           []Verdict{},
		HostConnected:      true,
	}

	s.lobbies[code] = &entry{l: l}
	s.routes[connID] = route{Code: code, Role: RoleHost}
	s.tokens[code] = &tokenPair{Host: token}
	s.mu.Unlock()

	return l.snapshot(), token, nil
}

// Join attaches a player to an existing lobby and issues the player's session
// token. Joining is refused while a connected player already occupies the
// seat.
func (s *Store) Join(code, connID, playerName string) (*Lobby, string, error) {
	s.mu.Lock()
	e, ok := s.lobbies[code]
	if !ok {
		s.mu.Unlock()
		return nil, "", ErrNotFound
	}
	tokens := s.tokens[code]
	s.mu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.l

	if l.Player != nil && l.PlayerConnected {
		return nil, "", ErrLobbyFull
	}

	// Mint before touching the lobby so a failure leaves the seat joinable.
	token, err := s.NewToken(code, RolePlayer)
	if err != nil {
		return nil, "", fmt.Errorf("minting player token: %w", err)
	}

	now := s.nowMillis()
	l.Player = &Participant{
		ID:       connID,
		Name:     sanitizeName(playerName),
		JoinedAt: now,
	}
	l.PlayerConnected = true
	l.DisconnectedAt = nil

	// Host may have finished setup before anyone joined.
	if len(l.HostAnswers) == catalog.PackSize && l.Phase == PhaseHostSetup {
		l.Phase = PhaseReadyToStart
	}

	s.mu.Lock()
	s.routes[connID] = route{Code: code, Role: RolePlayer}
	if tokens != nil {
		tokens.Player = token
	}
	s.mu.Unlock()

	return l.snapshot(), token, nil
}

// Get returns a snapshot of the lobby with the given code.
func (s *Store) Get(code string) (*Lobby, bool) {
	s.mu.Lock()
	e, ok := s.lobbies[code]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.l.snapshot(), true
}

// RouteFor resolves a connection identity to its lobby code and role.
func (s *Store) RouteFor(connID string) (string, Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.routes[connID]
	return r.Code, r.Role, ok
}

// ValidateToken reports whether token equals the stored credential for the
// given role and code. A role with no stored token never validates.
func (s *Store) ValidateToken(code string, role Role, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	tp, ok := s.tokens[code]
	if !ok || token == "" {
		return false
	}
	if role == RoleHost {
		return tp.Host != "" && tp.Host == token
	}
	return tp.Player != "" && tp.Player == token
}

// withLobby runs fn with the lobby's single-writer lock held and returns a
// snapshot on success.
func (s *Store) withLobby(code string, fn func(l *Lobby) error) (*Lobby, error) {
	s.mu.Lock()
	e, ok := s.lobbies[code]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := fn(e.l); err != nil {
		return nil, err
	}
	return e.l.snapshot(), nil
}

// SelectPack swaps the lobby's question set. Only legal before any setup has
// happened; once the host has stored an answer the set is frozen for this
// game instance.
func (s *Store) SelectPack(code, packID string) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Phase != PhaseWaitingForPlayers {
			return ErrWrongPhase
		}
		if len(l.HostAnswers) > 0 {
			return ErrPackLocked
		}
		questions, ok := catalog.QuestionsForPack(packID)
		if !ok {
			return ErrUnknownPack
		}
		l.PackID = packID
		l.Questions = questions
		ids := make([]string, len(questions))
		for i, q := range questions {
			ids[i] = q.ID
		}
		l.QuestionIDs = ids
		return nil
	})
}

// SetHostAnswer upserts the host's answer for the question at index. The
// first stored answer moves the lobby into HOST_SETUP.
func (s *Store) SetHostAnswer(code string, index int, questionID, value string) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Phase != PhaseHostSetup && l.Phase != PhaseWaitingForPlayers {
			return ErrWrongPhase
		}
		if index < 0 || index >= len(l.Questions) {
			return ErrIndexMismatch
		}
		if l.Questions[index].ID != questionID {
			return ErrQuestionMismatch
		}
		if l.Phase == PhaseWaitingForPlayers {
			l.Phase = PhaseHostSetup
		}
		answer := HostAnswer{QuestionID: questionID, Value: sanitizeAnswer(value)}
		for i := range l.HostAnswers {
			if l.HostAnswers[i].QuestionID == questionID {
				l.HostAnswers[i] = answer
				return nil
			}
		}
		l.HostAnswers = append(l.HostAnswers, answer)
		return nil
	})
}

// CompleteHostSetup finishes setup once all answers exist. The lobby becomes
// READY_TO_START if a connected player is present, otherwise it drops back to
// WAITING_FOR_PLAYERS until somebody joins.
func (s *Store) CompleteHostSetup(code string) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Phase != PhaseHostSetup {
			return ErrWrongPhase
		}
		if len(l.HostAnswers) != catalog.PackSize {
			return ErrSetupIncomplete
		}
		if l.Player != nil && l.PlayerConnected {
			l.Phase = PhaseReadyToStart
		} else {
			l.Phase = PhaseWaitingForPlayers
		}
		return nil
	})
}

// StartGame begins a run: index 0, cleared player answers and verdicts, and a
// fresh question clock stamped from server time.
func (s *Store) StartGame(code string) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Player == nil || !l.PlayerConnected {
			return ErrPlayerMissing
		}
		if len(l.HostAnswers) != catalog.PackSize {
			return ErrSetupIncomplete
		}
		if l.Phase != PhaseReadyToStart {
			return ErrWrongPhase
		}
		now := s.nowMillis()
		l.Phase = PhaseInProgress
		l.CurrentIndex = 0
		l.PlayerAnswers = []PlayerAnswer{}
		l.Verdicts = []Verdict{}
		l.QuestionStartAt = &now
		return nil
	})
}

// UpdateDraft records the player's in-progress text for the current question
// so the host can watch them type. Drafts are never authoritative answers.
func (s *Store) UpdateDraft(code string, index int, text string) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Phase != PhaseInProgress {
			return ErrWrongPhase
		}
		if index != l.CurrentIndex || index < 0 || index >= len(l.Questions) {
			return ErrIndexMismatch
		}
		qid := l.Questions[index].ID
		draft := truncateRunes(text, maxAnswerLen)
		for i := range l.PlayerAnswers {
			if l.PlayerAnswers[i].QuestionID == qid {
				l.PlayerAnswers[i].LiveDraft = draft
				return nil
			}
		}
		l.PlayerAnswers = append(l.PlayerAnswers, PlayerAnswer{
			QuestionID: qid,
			LiveDraft:  draft,
		})
		return nil
	})
}

// SubmitAnswer records the player's answer for the current question and moves
// the lobby to JUDGING. A timed-out submission stores an empty value. If an
// answer was already submitted the transition re-asserts JUDGING without
// duplicating anything, so retransmitted submits are harmless.
func (s *Store) SubmitAnswer(code string, index int, value string, timedOut bool) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Phase != PhaseInProgress {
			return ErrWrongPhase
		}
		if index != l.CurrentIndex || index < 0 || index >= len(l.Questions) {
			return ErrIndexMismatch
		}
		qid := l.Questions[index].ID

		for i := range l.PlayerAnswers {
			if l.PlayerAnswers[i].QuestionID == qid && l.PlayerAnswers[i].SubmittedAt > 0 {
				l.Phase = PhaseJudging
				l.QuestionStartAt = nil
				return nil
			}
		}

		sanitized := ""
		if !timedOut {
			sanitized = sanitizeAnswer(value)
		}
		answer := PlayerAnswer{
			QuestionID:  qid,
			Value:       sanitized,
			SubmittedAt: s.nowMillis(),
			TimedOut:    timedOut,
		}
		replaced := false
		for i := range l.PlayerAnswers {
			if l.PlayerAnswers[i].QuestionID == qid {
				l.PlayerAnswers[i] = answer
				replaced = true
				break
			}
		}
		if !replaced {
			l.PlayerAnswers = append(l.PlayerAnswers, answer)
		}

		l.Phase = PhaseJudging
		l.QuestionStartAt = nil
		return nil
	})
}

// Judge appends the host's verdict for the current question and either
// advances to the next question or finishes the game. Judging an
// already-judged index returns the lobby unchanged.
func (s *Store) Judge(code string, index int, isCorrect bool) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if l.Phase != PhaseJudging {
			return ErrWrongPhase
		}
		if index != l.CurrentIndex || index < 0 || index >= len(l.Questions) {
			return ErrIndexMismatch
		}
		for _, v := range l.Verdicts {
			if v.Index == index {
				return nil // already judged, idempotent
			}
		}
		l.Verdicts = append(l.Verdicts, Verdict{
			QuestionID: l.Questions[index].ID,
			Index:      index,
			IsCorrect:  isCorrect,
			JudgedAt:   s.nowMillis(),
		})
		if index >= catalog.PackSize-1 {
			l.Phase = PhaseFinished
			l.QuestionStartAt = nil
			return nil
		}
		now := s.nowMillis()
		l.CurrentIndex++
		l.Phase = PhaseInProgress
		l.QuestionStartAt = &now
		return nil
	})
}

// Restart resets the lobby back to HOST_SETUP for another round, optionally
// swapping the question pack. Answers, verdicts, index and the question clock
// are all cleared.
func (s *Store) Restart(code, newPackID string) (*Lobby, error) {
	return s.withLobby(code, func(l *Lobby) error {
		if newPackID != "" && newPackID != l.PackID {
			if questions, ok := catalog.QuestionsForPack(newPackID); ok {
				l.PackID = newPackID
				l.Questions = questions
				ids := make([]string, len(questions))
				for i, q := range questions {
					ids[i] = q.ID
				}
				l.QuestionIDs = ids
			}
		}
		l.Phase = PhaseHostSetup
		l.CurrentIndex = 0
		l.HostAnswers = []HostAnswer{}
		l.PlayerAnswers = []PlayerAnswer{}
		l.Verdicts = []Verdict{}
		l.QuestionStartAt = nil
		l.DisconnectedAt = nil
		return nil
	})
}

// Disconnect marks the seat behind connID as disconnected and, if a question
// is live, stamps the pause start. Game state is otherwise untouched; the
// lobby survives until the sweep reclaims it.
func (s *Store) Disconnect(connID string) (*Lobby, Role, error) {
	s.mu.Lock()
	r, ok := s.routes[connID]
	if !ok {
		s.mu.Unlock()
		return nil, "", ErrNotFound
	}
	delete(s.routes, connID)
	e, ok := s.lobbies[r.Code]
	s.mu.Unlock()
	if !ok {
		return nil, "", ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.l
	if r.Role == RoleHost {
		l.HostConnected = false
	} else {
		l.PlayerConnected = false
	}
	if l.Phase == PhaseInProgress && l.QuestionStartAt != nil && l.DisconnectedAt == nil {
		now := s.nowMillis()
		l.DisconnectedAt = &now
	}
	return l.snapshot(), r.Role, nil
}

// Reconnect rebinds a role to a new connection identity after token
// validation. When both sides are connected again and a pause was active, the
// question clock is shifted forward by the pause duration so the remaining
// time is exactly what it was at disconnect.
func (s *Store) Reconnect(code, connID string, role Role, token string) (*Lobby, error) {
	if !s.ValidateToken(code, role, token) {
		return nil, ErrInvalidToken
	}

	s.mu.Lock()
	e, ok := s.lobbies[code]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	l := e.l

	if role == RoleHost {
		if l.Host == nil {
			return nil, ErrNotFound
		}
		l.Host.ID = connID
		l.HostConnected = true
	} else {
		if l.Player == nil {
			return nil, ErrNotFound
		}
		l.Player.ID = connID
		l.PlayerConnected = true
	}

	s.mu.Lock()
	s.routes[connID] = route{Code: code, Role: role}
	s.mu.Unlock()

	if l.HostConnected && l.PlayerConnected && l.DisconnectedAt != nil && l.QuestionStartAt != nil {
		pause := s.nowMillis() - *l.DisconnectedAt
		shifted := *l.QuestionStartAt + pause
		l.QuestionStartAt = &shifted
		l.DisconnectedAt = nil
	}

	return l.snapshot(), nil
}

// Leave is an explicit disconnect triggered by the client.
func (s *Store) Leave(connID string) (*Lobby, error) {
	l, _, err := s.Disconnect(connID)
	return l, err
}

// CleanupExpired deletes lobbies older than lobbyTTL, and lobbies where both
// participants have been gone longer than disconnectTTL. It also prunes
// routing entries whose lobby no longer exists. Returns the codes removed so
// the orchestrator can cancel their timers.
func (s *Store) CleanupExpired(lobbyTTL, disconnectTTL time.Duration) []string {
	now := s.nowMillis()
	var removed []string

	s.mu.Lock()
	for code, e := range s.lobbies {
		e.mu.Lock()
		l := e.l
		old := now-l.CreatedAt > lobbyTTL.Milliseconds()
		bothGone := !l.HostConnected && !l.PlayerConnected
		goneTooLong := l.DisconnectedAt != nil && now-*l.DisconnectedAt > disconnectTTL.Milliseconds()
		e.mu.Unlock()

		if old || (bothGone && goneTooLong) {
			delete(s.lobbies, code)
			delete(s.tokens, code)
			removed = append(removed, code)
		}
	}
	for connID, r := range s.routes {
		if _, ok := s.lobbies[r.Code]; !ok {
			delete(s.routes, connID)
		}
	}
	s.mu.Unlock()

	return removed
}
