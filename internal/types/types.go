package types

import (
	"time"
)

type User struct {
	Id        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Conversation is the friend link created alongside a match. Its id is
// the match id.
type Conversation struct {
	Id        int       `json:"id"`
	UserAId   int       `json:"user_a_id"`
	UserBId   int       `json:"user_b_id"`
	Peer      User      `json:"peer"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// OtherUserId returns the participant that is not userId.
func (c Conversation) OtherUserId(userId int) int {
	if c.UserAId == userId {
		return c.UserBId
	}
	return c.UserAId
}

func (c Conversation) HasUser(userId int) bool {
	return c.UserAId == userId || c.UserBId == userId
}

type Message struct {
	Id             int       `json:"id"`
	ConversationId int       `json:"conversation_id"`
	SenderId       int       `json:"sender_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
	// TempId is set on an optimistic entry until the backend write
	// confirms; confirmed and historical messages leave it empty.
	TempId string `json:"-"`
}

// MatchOutcome is the terminal payload of a match search.
type MatchOutcome struct {
	State          MatchState `json:"state"`
	PeerUsername   string     `json:"peer_username,omitempty"`
	ConversationId int        `json:"conversation_id,omitempty"`
}

type MatchState int

const (
	MatchPending MatchState = iota
	MatchMatched
	MatchSuperseded
	MatchExhausted
)

func (s MatchState) String() string {
	switch s {
	case MatchPending:
		return "pending"
	case MatchMatched:
		return "matched"
	case MatchSuperseded:
		return "superseded"
	case MatchExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends the search for a request.
func (s MatchState) Terminal() bool {
	return s != MatchPending
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
