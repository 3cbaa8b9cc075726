// internal/lobby/types.go
package lobby

import (
	"github.com/lovelobby/server/internal/catalog"
)

// Phase is the lobby's current state-machine state.
type Phase string

const (
	PhaseWaitingForPlayers Phase = "WAITING_FOR_PLAYERS"
	PhaseHostSetup         Phase = "HOST_SETUP"
	PhaseReadyToStart      Phase = "READY_TO_START"
	PhaseInProgress        Phase = "IN_PROGRESS"
	PhaseJudging           Phase = "JUDGING"
	PhaseFinished          Phase = "FINISHED"
)

// Role identifies which side of the lobby a connection occupies.
type Role string

const (
	RoleHost   Role = "host"
	RolePlayer Role = "player"
)

// Participant is one of the two people in a lobby. ID is the current
// connection identity and is rebound on reconnect.
type Participant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinedAt int64  `json:"joinedAt"`
}

// HostAnswer is the host's pre-recorded answer for one question.
type HostAnswer struct {
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

// PlayerAnswer is the player's guess for one question. A zero SubmittedAt
// means only a live draft exists and nothing has been submitted yet.
type PlayerAnswer struct {
	QuestionID  string `json:"questionId"`
	Value       string `json:"value"`
	SubmittedAt int64  `json:"submittedAt"`
	TimedOut    bool   `json:"timedOut"`
	LiveDraft   string `json:"liveDraft,omitempty"`
}

// Verdict is the host's correctness judgment for one question.
type Verdict struct {
	QuestionID string `json:"questionId"`
	Index      int    `json:"index"`
	IsCorrect  bool   `json:"isCorrect"`
	JudgedAt   int64  `json:"judgedAt"`
}

// Lobby is one two-party game session, keyed by a 5-digit code. All
// timestamps are Unix milliseconds to keep the wire format stable.
//
// Lobbies are owned exclusively by the Store; callers outside this package
// only ever see snapshot copies.
type Lobby struct {
	Code      string       `json:"code"`
	CreatedAt int64        `json:"createdAt"`
	Host      *Participant `json:"host"`
	Player    *Participant `json:"player"`

	PackID      string             `json:"packId"`
	QuestionIDs []string           `json:"questionIds"`
	Questions   []catalog.Question `json:"questions"`

	HostAnswers   []HostAnswer   `json:"hostAnswers"`
	PlayerAnswers []PlayerAnswer `json:"playerAnswers"`

	CurrentIndex int   `json:"currentIndex"`
	Phase        Phase `json:"phase"`

	PerQuestionSeconds int    `json:"perQuestionSeconds"`
	QuestionStartAt    *int64 `json:"questionStartAt"`

	Verdicts []Verdict `json:"verdicts"`

	HostConnected   bool   `json:"hostConnected"`
	PlayerConnected bool   `json:"playerConnected"`
	DisconnectedAt  *int64 `json:"disconnectedAt"`
}

// snapshot returns a deep copy safe to hand outside the store's locks.
func (l *Lobby) snapshot() *Lobby {
	cp := *l
	if l.Host != nil {
		h := *l.Host
		cp.Host = &h
	}
	if l.Player != nil {
		p := *l.Player
		cp.Player = &p
	}
	cp.QuestionIDs = append([]string(nil), l.QuestionIDs...)
	cp.Questions = append([]catalog.Question(nil), l.Questions...)
	cp.HostAnswers = append([]HostAnswer(nil), l.HostAnswers...)
	cp.PlayerAnswers = append([]PlayerAnswer(nil), l.PlayerAnswers...)
	cp.Verdicts = append([]Verdict(nil), l.Verdicts...)
	if l.QuestionStartAt != nil {
		v := *l.QuestionStartAt
		cp.QuestionStartAt = &v
	}
	if l.DisconnectedAt != nil {
		v := *l.DisconnectedAt
		cp.DisconnectedAt = &v
	}
	return &cp
}
