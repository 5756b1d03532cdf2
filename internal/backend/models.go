package backend

import "time"

type User struct {
	Id        int
	Username  string
	CreatedAt time.Time
}

// MatchRequest is a user's open offer to be paired for a skill. The
// backend deletes the row the moment a counterpart is found, so the
// client learns about state changes only from the row's continued
// existence.
type MatchRequest struct {
	Id         int
	ExternalId string
	UserId     int
	Skill      string
	CreatedAt  time.Time
}

type Match struct {
	Id        int
	UserAId   int
	UserBId   int
	CreatedAt time.Time
}

// Friend is the persistent chat link between two matched users. Its id
// equals the match id that created it.
type Friend struct {
	Id        int
	UserAId   int
	UserBId   int
	CreatedAt time.Time
}

type Message struct {
	Id             int
	ConversationId int
	SenderId       int
	Content        string
	Read           bool
	CreatedAt      time.Time
}

type CreateMatchRequestParams struct {
	ExternalId string
	UserId     int
	Skill      string
}

type CreateMessageParams struct {
	ConversationId int
	SenderId       int
	Content        string
	CreatedAt      time.Time
}
