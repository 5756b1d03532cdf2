package backend

import (
	"database/sql"
	"fmt"
	"time"
)

func (db *PgStore) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, created_at FROM users "+
			"WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return User{}, ErrNotFound
	}

	return user, err
}

func (db *PgStore) CreateMatchRequest(params CreateMatchRequestParams) (MatchRequest, error) {
	res := db.conn.QueryRow(
		"INSERT INTO match_requests (external_id, user_id, skill, created_at) "+
			"VALUES ($1, $2, $3, $4) RETURNING id, external_id, user_id, skill, created_at",
		params.ExternalId,
		params.UserId,
		params.Skill,
		time.Now().UTC(),
	)

	var req MatchRequest
	err := res.Scan(
		&req.Id,
		&req.ExternalId,
		&req.UserId,
		&req.Skill,
		&req.CreatedAt,
	)

	return req, err
}

func (db *PgStore) MatchRequestExists(requestId int) (bool, error) {
	row := db.conn.QueryRow(
		"SELECT id FROM match_requests WHERE id = $1 LIMIT 1",
		requestId,
	)

	var id int
	err := row.Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (db *PgStore) DeleteMatchRequest(requestId int) error {
	_, err := db.conn.Exec(
		"DELETE FROM match_requests WHERE id = $1",
		requestId,
	)

	return err
}

// GetFriendForUser fetches a friend link only if userId is one of its
// participants. A non-participant caller gets ErrNotFound, identical
// to a link that does not exist.
func (db *PgStore) GetFriendForUser(userId, friendId int) (Friend, error) {
	row := db.conn.QueryRow(
		"SELECT id, user_a_id, user_b_id, created_at FROM friends "+
			"WHERE id = $1 AND (user_a_id = $2 OR user_b_id = $2) LIMIT 1",
		friendId,
		userId,
	)

	var f Friend
	err := row.Scan(
		&f.Id,
		&f.UserAId,
		&f.UserBId,
		&f.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return Friend{}, ErrNotFound
	}

	return f, err
}

func (db *PgStore) ListFriends(userId int) ([]Friend, error) {
	rows, err := db.conn.Query(
		"SELECT id, user_a_id, user_b_id, created_at FROM friends "+
			"WHERE user_a_id = $1 OR user_b_id = $1 ORDER BY created_at DESC",
		userId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var friends = make([]Friend, 0)
	for rows.Next() {
		var f Friend
		if err = rows.Scan(&f.Id, &f.UserAId, &f.UserBId, &f.CreatedAt); err != nil {
			break
		}

		friends = append(friends, f)
	}

	return friends, err
}

// GetMessages returns the conversation's full history in a stable
// total order: send time ascending, ties broken by id ascending.
func (db *PgStore) GetMessages(conversationId int) ([]Message, error) {
	rows, err := db.conn.Query(
		"SELECT id, conversation_id, sender_id, content, read, created_at FROM messages "+
			"WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC",
		conversationId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages = make([]Message, 0)
	for rows.Next() {
		var msg Message
		if err = rows.Scan(&msg.Id, &msg.ConversationId, &msg.SenderId, &msg.Content, &msg.Read, &msg.CreatedAt); err != nil {
			break
		}

		messages = append(messages, msg)
	}

	return messages, err
}

func (db *PgStore) CreateMessage(params CreateMessageParams) (Message, error) {
	res := db.conn.QueryRow(
		"INSERT INTO messages (conversation_id, sender_id, content, read, created_at) "+
			"VALUES ($1, $2, $3, FALSE, $4) RETURNING id, conversation_id, sender_id, content, read, created_at",
		params.ConversationId,
		params.SenderId,
		params.Content,
		params.CreatedAt,
	)

	var msg Message
	err := res.Scan(
		&msg.Id,
		&msg.ConversationId,
		&msg.SenderId,
		&msg.Content,
		&msg.Read,
		&msg.CreatedAt,
	)

	return msg, err
}

// MarkConversationRead flips the read flag on every unread message in
// the conversation not authored by readerId, as one conditional bulk
// update.
func (db *PgStore) MarkConversationRead(conversationId, readerId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET read = TRUE "+
			"WHERE conversation_id = $1 AND sender_id <> $2 AND read = FALSE",
		conversationId,
		readerId,
	)

	return err
}

func (db *PgStore) MarkMessageRead(messageId int) error {
	_, err := db.conn.Exec(
		"UPDATE messages SET read = TRUE WHERE id = $1",
		messageId,
	)

	return err
}

func (db *PgStore) CountUnread(userId int) (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM messages m "+
			"JOIN friends f ON f.id = m.conversation_id "+
			"WHERE (f.user_a_id = $1 OR f.user_b_id = $1) "+
			"AND m.sender_id <> $1 AND m.read = FALSE",
		userId,
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgStore) BlockUser(userId, peerId, conversationId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(
		"INSERT INTO blocks (blocker_id, blocked_id, created_at) VALUES ($1, $2, $3), ($2, $1, $3)",
		userId,
		peerId,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert blocks: %w", err)
	}

	_, err = tx.Exec("DELETE FROM messages WHERE conversation_id = $1", conversationId)
	if err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}

	_, err = tx.Exec(
		"DELETE FROM friends WHERE id = $1 AND (user_a_id = $2 OR user_b_id = $2)",
		conversationId,
		userId,
	)
	if err != nil {
		return fmt.Errorf("delete friend link: %w", err)
	}

	_, err = tx.Exec("DELETE FROM matches WHERE id = $1", conversationId)
	if err != nil {
		return fmt.Errorf("delete match: %w", err)
	}

	return tx.Commit()
}
