// internal/session/events.go
package session

import (
	"errors"
	"regexp"
	"strings"

	"github.com/lovelobby/server/internal/catalog"
)

// Inbound event names (client -> server).
const (
	EventCreate        = "lobby:create"
	EventJoin          = "lobby:join"
	EventReconnect     = "lobby:reconnect"
	EventLeave         = "lobby:leave"
	EventSelectPack    = "pack:select"
	EventHostAnswer    = "host:answer:set"
	EventSetupComplete = "host:setup:complete"
	EventStartGame     = "game:start"
	EventDraftUpdate   = "player:draft:update"
	EventSubmitAnswer  = "player:answer:submit"
	EventJudge         = "host:judge"
	EventRestart       = "game:restart"
)

// Outbound event names (server -> client).
const (
	EventState     = "lobby:state"
	EventError     = "lobby:error"
	EventCreated   = "lobby:created"
	EventJoined    = "lobby:joined"
	EventTimerTick = "timer:tick"
	EventDraft     = "player:draft"
)

var codePattern = regexp.MustCompile(`^[0-9]{5}$`)

// Payload validation mirrors the schema layer of the upstream service: every
// inbound payload is checked before it can touch the state machine, and a
// failure produces a human-readable message without mutating anything.

type CreateLobbyPayload struct {
	HostName string `json:"hostName"`
}

func (p *CreateLobbyPayload) Validate() error {
	p.HostName = strings.TrimSpace(p.HostName)
	if p.HostName == "" || len([]rune(p.HostName)) > 20 {
		return errors.New("Name must be 1-20 characters")
	}
	return nil
}

type JoinLobbyPayload struct {
	Code       string `json:"code"`
	PlayerName string `json:"playerName"`
}

func (p *JoinLobbyPayload) Validate() error {
	if !codePattern.MatchString(p.Code) {
		return errors.New("Code must be exactly 5 digits")
	}
	p.PlayerName = strings.TrimSpace(p.PlayerName)
	if p.PlayerName == "" || len([]rune(p.PlayerName)) > 20 {
		return errors.New("Name must be 1-20 characters")
	}
	return nil
}

type ReconnectPayload struct {
	Code  string `json:"code"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

func (p *ReconnectPayload) Validate() error {
	if !codePattern.MatchString(p.Code) {
		return errors.New("Code must be exactly 5 digits")
	}
	if p.Role != "host" && p.Role != "player" {
		return errors.New("Role must be host or player")
	}
	return nil
}

type SelectPackPayload struct {
	PackID string `json:"packId"`
}

func (p *SelectPackPayload) Validate() error {
	if p.PackID == "" {
		return errors.New("Missing pack id")
	}
	return nil
}

type HostAnswerPayload struct {
	Index      int    `json:"index"`
	QuestionID string `json:"questionId"`
	Value      string `json:"value"`
}

func (p *HostAnswerPayload) Validate() error {
	if p.Index < 0 || p.Index >= catalog.PackSize {
		return errors.New("Question index out of range")
	}
	if p.QuestionID == "" {
		return errors.New("Missing question id")
	}
	if len([]rune(p.Value)) > 200 {
		return errors.New("Answer too long")
	}
	return nil
}

type DraftPayload struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

func (p *DraftPayload) Validate() error {
	if p.Index < 0 || p.Index >= catalog.PackSize {
		return errors.New("Question index out of range")
	}
	if len([]rune(p.Text)) > 200 {
		return errors.New("Draft too long")
	}
	return nil
}

type PlayerAnswerPayload struct {
	Index int    `json:"index"`
	Value string `json:"value"`
}

func (p *PlayerAnswerPayload) Validate() error {
	if p.Index < 0 || p.Index >= catalog.PackSize {
		return errors.New("Question index out of range")
	}
	if len([]rune(p.Value)) > 200 {
		return errors.New("Answer too long")
	}
	return nil
}

type JudgePayload struct {
	Index     int  `json:"index"`
	IsCorrect bool `json:"isCorrect"`
}

func (p *JudgePayload) Validate() error {
	if p.Index < 0 || p.Index >= catalog.PackSize {
		return errors.New("Question index out of range")
	}
	return nil
}

type RestartPayload struct {
	PackID string `json:"packId,omitempty"`
}
