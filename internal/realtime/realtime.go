package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const (
	TableMatches  = "matches"
	TableMessages = "messages"
)

// Filter restricts a subscription to rows whose column equals value.
// The backend applies it server side; the client only routes frames.
type Filter struct {
	Column string `json:"column"`
	Value  int    `json:"value"`
}

// ChangeEvent is one insert observed on a subscribed table. Record is
// decoded lazily so malformed payloads surface at the call site that
// cares, not in the read pump.
type ChangeEvent struct {
	Table  string
	Record json.RawMessage
}

// Feed hands out change subscriptions. A nil filter subscribes to
// every insert on the table.
type Feed interface {
	Subscribe(table string, filter *Filter) (*Subscription, error)
}

// Subscription is an explicitly owned handle on a change stream. The
// owner must call Close on every exit path; a leaked subscription
// keeps delivering events into state that no longer wants them.
type Subscription struct {
	ref     int
	table   string
	filter  *Filter
	events  chan ChangeEvent
	release func(*Subscription)
	once    sync.Once
}

func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		if s.release != nil {
			s.release(s)
		}
	})
}

// MatchRecord is the wire shape of a matches-table insert.
type MatchRecord struct {
	Id        int       `json:"id"`
	UserAId   int       `json:"user_a_id"`
	UserBId   int       `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (r MatchRecord) OtherUserId(userId int) int {
	if r.UserAId == userId {
		return r.UserBId
	}
	return r.UserAId
}

func (r MatchRecord) HasUser(userId int) bool {
	return r.UserAId == userId || r.UserBId == userId
}

// MessageRecord is the wire shape of a messages-table insert.
type MessageRecord struct {
	Id             int       `json:"id"`
	ConversationId int       `json:"conversation_id"`
	SenderId       int       `json:"sender_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// DecodeMatch validates and decodes a matches event at the boundary.
func DecodeMatch(e ChangeEvent) (MatchRecord, error) {
	if e.Table != TableMatches {
		return MatchRecord{}, fmt.Errorf("event is for table %q, not %q", e.Table, TableMatches)
	}

	var rec MatchRecord
	if err := json.Unmarshal(e.Record, &rec); err != nil {
		return MatchRecord{}, fmt.Errorf("decode match record: %w", err)
	}
	if rec.Id == 0 || rec.UserAId == 0 || rec.UserBId == 0 {
		return MatchRecord{}, fmt.Errorf("match record missing required fields: %s", string(e.Record))
	}

	return rec, nil
}

// DecodeMessage validates and decodes a messages event at the boundary.
func DecodeMessage(e ChangeEvent) (MessageRecord, error) {
	if e.Table != TableMessages {
		return MessageRecord{}, fmt.Errorf("event is for table %q, not %q", e.Table, TableMessages)
	}

	var rec MessageRecord
	if err := json.Unmarshal(e.Record, &rec); err != nil {
		return MessageRecord{}, fmt.Errorf("decode message record: %w", err)
	}
	if rec.Id == 0 || rec.ConversationId == 0 || rec.SenderId == 0 {
		return MessageRecord{}, fmt.Errorf("message record missing required fields: %s", string(e.Record))
	}

	return rec, nil
}
