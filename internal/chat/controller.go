package chat

import (
	"errors"
	"log"
	"slices"
	"sync"

	"github.com/teris-io/shortid"

	"github.com/Pathfinder132/SkillSwap/internal/backend"
	"github.com/Pathfinder132/SkillSwap/internal/realtime"
	"github.com/Pathfinder132/SkillSwap/internal/stats"
	"github.com/Pathfinder132/SkillSwap/internal/types"
)

// ConversationDirectory is the locally known conversation list,
// consulted before any backend round-trip during access resolution.
type ConversationDirectory interface {
	Conversation(conversationId int) (types.Conversation, bool)
	Remove(conversationId int)
}

// ReadReporter receives single-message read notifications so the
// unread badge can decrement while a conversation is open.
type ReadReporter interface {
	MessageRead()
}

// Listener receives view-facing updates from the controller.
type Listener interface {
	HistoryLoaded(conversationId int, messages []types.Message)
	MessageAdded(conversationId int, msg types.Message)
	// MessageRetracted undoes an optimistic append whose write failed;
	// restoredInput is the text handed back for retry.
	MessageRetracted(conversationId int, tempId, restoredInput string)
	// ConversationGone fires after a successful block, when the
	// conversation must disappear and the view must navigate away.
	ConversationGone(conversationId int)
}

// Controller owns one authorized, live, ordered message view at a
// time. Every asynchronous completion re-checks the generation marker
// before touching state, so work for a superseded conversation is
// discarded instead of applied.
type Controller struct {
	log      *log.Logger
	db       backend.Store
	feed     realtime.Feed
	stats    stats.StatsProvider
	dir      ConversationDirectory
	reads    ReadReporter
	listener Listener
	userId   int

	mu       sync.Mutex
	gen      int
	active   int
	conv     types.Conversation
	messages []types.Message
	sub      *realtime.Subscription
}

func NewController(logger *log.Logger, db backend.Store, feed realtime.Feed, statsProvider stats.StatsProvider,
	dir ConversationDirectory, reads ReadReporter, listener Listener, userId int) *Controller {
	return &Controller{
		log:      logger,
		db:       db,
		feed:     feed,
		stats:    statsProvider,
		dir:      dir,
		reads:    reads,
		listener: listener,
		userId:   userId,
	}
}

// ActiveConversation returns the open conversation, if any.
func (c *Controller) ActiveConversation() (types.Conversation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv, c.active != 0
}

// Messages returns a copy of the ordered message list.
func (c *Controller) Messages() []types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.messages)
}

// stale reports whether gen has been superseded by a newer Open or
// Close.
func (c *Controller) stale(gen int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

// Open resolves access to conversationId, loads its history, marks it
// read and attaches the live stream. A concurrent Open supersedes this
// one; the superseded call returns nil having changed nothing.
func (c *Controller) Open(conversationId int) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.detachLocked()
	c.mu.Unlock()

	conv, ok := c.dir.Conversation(conversationId)
	if !ok {
		// not locally known: ask the backend, constrained to rows the
		// current user participates in
		friend, err := c.db.GetFriendForUser(c.userId, conversationId)
		if errors.Is(err, backend.ErrNotFound) {
			return types.NewAccessDeniedError()
		}
		if err != nil {
			return types.NewTransientError(err)
		}

		conv = types.Conversation{
			Id:        friend.Id,
			UserAId:   friend.UserAId,
			UserBId:   friend.UserBId,
			CreatedAt: friend.CreatedAt,
		}
	}

	if c.stale(gen) {
		return nil
	}

	rows, err := c.db.GetMessages(conversationId)
	if err != nil {
		return types.NewTransientError(err)
	}

	messages := make([]types.Message, len(rows))
	for i, row := range rows {
		messages[i] = types.Message{
			Id:             row.Id,
			ConversationId: row.ConversationId,
			SenderId:       row.SenderId,
			Content:        row.Content,
			Read:           row.Read,
			CreatedAt:      row.CreatedAt,
		}
	}
	sortMessages(messages)

	if c.stale(gen) {
		return nil
	}

	if err := c.db.MarkConversationRead(conversationId, c.userId); err != nil {
		return types.NewTransientError(err)
	}

	sub, err := c.feed.Subscribe(realtime.TableMessages, &realtime.Filter{
		Column: "conversation_id",
		Value:  conversationId,
	})
	if err != nil {
		return types.NewTransientError(err)
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		sub.Close()
		return nil
	}
	c.active = conversationId
	c.conv = conv
	c.messages = messages
	c.sub = sub
	c.mu.Unlock()

	go c.pump(gen, sub)

	c.listener.HistoryLoaded(conversationId, slices.Clone(messages))

	return nil
}

func (c *Controller) pump(gen int, sub *realtime.Subscription) {
	for e := range sub.Events() {
		c.handleEvent(gen, e)
	}
}

func (c *Controller) handleEvent(gen int, e realtime.ChangeEvent) {
	rec, err := realtime.DecodeMessage(e)
	if err != nil {
		c.log.Println("discarding malformed message event:", err)
		return
	}

	// the sender's copy is already in the list from the optimistic
	// append; its echo is a no-op
	if rec.SenderId == c.userId {
		return
	}

	msg := types.Message{
		Id:             rec.Id,
		ConversationId: rec.ConversationId,
		SenderId:       rec.SenderId,
		Content:        rec.Content,
		Read:           true,
		CreatedAt:      rec.CreatedAt,
	}

	c.mu.Lock()
	if c.gen != gen || c.active != rec.ConversationId {
		c.mu.Unlock()
		return
	}
	// live events are newer than anything loaded, so appending keeps
	// the (created_at, id) order
	c.messages = append(c.messages, msg)
	conversationId := c.active
	c.mu.Unlock()

	c.listener.MessageAdded(conversationId, msg)
	if c.stats != nil {
		c.stats.Incr(stats.MessagesReceived)
	}

	if err := c.db.MarkMessageRead(rec.Id); err != nil {
		c.log.Println("mark message read:", err)
		return
	}
	c.reads.MessageRead()
}

// Send appends an optimistic entry, clears the caller's input and
// persists the message. On failure the entry is retracted and the
// text handed back through the listener.
func (c *Controller) Send(content string) error {
	if content == "" {
		return types.NewValidationError("message is empty")
	}

	c.mu.Lock()
	if c.active == 0 {
		c.mu.Unlock()
		return types.NewValidationError("no open conversation")
	}
	gen := c.gen
	conversationId := c.active
	c.mu.Unlock()

	tempId, err := shortid.Generate()
	if err != nil {
		return types.NewSendError(err)
	}

	optimistic := types.Message{
		ConversationId: conversationId,
		SenderId:       c.userId,
		Content:        content,
		Read:           true,
		CreatedAt:      types.Now(),
		TempId:         tempId,
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	c.messages = append(c.messages, optimistic)
	c.mu.Unlock()

	c.listener.MessageAdded(conversationId, optimistic)

	row, err := c.db.CreateMessage(backend.CreateMessageParams{
		ConversationId: conversationId,
		SenderId:       c.userId,
		Content:        content,
		CreatedAt:      optimistic.CreatedAt,
	})
	if err != nil {
		c.retract(gen, conversationId, tempId, content)
		return types.NewSendError(err)
	}

	c.mu.Lock()
	if c.gen == gen {
		for i := range c.messages {
			if c.messages[i].TempId == tempId {
				c.messages[i].Id = row.Id
				c.messages[i].CreatedAt = row.CreatedAt
				c.messages[i].TempId = ""
				break
			}
		}
	}
	c.mu.Unlock()

	if c.stats != nil {
		c.stats.Incr(stats.MessagesSent)
	}

	return nil
}

func (c *Controller) retract(gen, conversationId int, tempId, content string) {
	c.mu.Lock()
	if c.gen != gen {
		// the view moved on; it must not hear about the old
		// conversation's failed send
		c.mu.Unlock()
		return
	}
	c.messages = slices.DeleteFunc(c.messages, func(m types.Message) bool {
		return m.TempId == tempId
	})
	c.mu.Unlock()

	c.listener.MessageRetracted(conversationId, tempId, content)
}

// Block blocks the peer of the open conversation, removing the link,
// its messages and the underlying match in one backend transaction.
// The conversation stays visible until every step has succeeded.
func (c *Controller) Block() error {
	c.mu.Lock()
	if c.active == 0 {
		c.mu.Unlock()
		return types.NewValidationError("no open conversation")
	}
	conversationId := c.active
	peerId := c.conv.OtherUserId(c.userId)
	c.mu.Unlock()

	if err := c.db.BlockUser(c.userId, peerId, conversationId); err != nil {
		return types.NewBlockError(err)
	}

	c.dir.Remove(conversationId)

	c.mu.Lock()
	if c.active == conversationId {
		c.gen++
		c.detachLocked()
	}
	c.mu.Unlock()

	c.listener.ConversationGone(conversationId)

	return nil
}

// Close tears down the live subscription and clears the active view.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.detachLocked()
	c.mu.Unlock()
}

// detachLocked releases the subscription and active state. Callers
// hold c.mu.
func (c *Controller) detachLocked() {
	if c.sub != nil {
		c.sub.Close()
		c.sub = nil
	}
	c.active = 0
	c.conv = types.Conversation{}
	c.messages = nil
}

// sortMessages establishes the stable total order: send time
// ascending, ties broken by id ascending.
func sortMessages(messages []types.Message) {
	slices.SortStableFunc(messages, func(a, b types.Message) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return a.Id - b.Id
	})
}
