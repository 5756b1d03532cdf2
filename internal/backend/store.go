package backend

// Store is the point-query surface of the managed backend. All access
// control relevant filters (participant constraints) live in the
// queries themselves so a caller can never widen its own access by
// passing an arbitrary id.
type Store interface {
	Ping() error
	GetAccountById(accountId int) (User, error)

	CreateMatchRequest(params CreateMatchRequestParams) (MatchRequest, error)
	MatchRequestExists(requestId int) (bool, error)
	DeleteMatchRequest(requestId int) error

	GetFriendForUser(userId, friendId int) (Friend, error)
	ListFriends(userId int) ([]Friend, error)

	GetMessages(conversationId int) ([]Message, error)
	CreateMessage(params CreateMessageParams) (Message, error)
	MarkConversationRead(conversationId, readerId int) error
	MarkMessageRead(messageId int) error
	CountUnread(userId int) (int, error)

	// BlockUser inserts block rows for both directions, removes the
	// friend link with its messages, and deletes the originating match
	// in a single transaction.
	BlockUser(userId, peerId, conversationId int) error
}
