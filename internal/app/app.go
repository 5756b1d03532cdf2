package app

import (
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/Pathfinder132/SkillSwap/internal/backend"
	"github.com/Pathfinder132/SkillSwap/internal/chat"
	"github.com/Pathfinder132/SkillSwap/internal/config"
	"github.com/Pathfinder132/SkillSwap/internal/match"
	"github.com/Pathfinder132/SkillSwap/internal/realtime"
	"github.com/Pathfinder132/SkillSwap/internal/session"
	"github.com/Pathfinder132/SkillSwap/internal/stats"
	"github.com/Pathfinder132/SkillSwap/internal/types"
	"github.com/Pathfinder132/SkillSwap/internal/unread"
)

// Skills is the catalog users can advertise and request.
var Skills = []string{
	"Guitar",
	"Piano",
	"Singing",
	"Drawing",
	"Painting",
	"Photography",
	"Cooking",
	"Baking",
	"Spanish",
	"French",
	"Japanese",
	"Chess",
	"Yoga",
	"Coding",
	"Public Speaking",
}

// UI is everything the session pushes at the presentation layer.
type UI interface {
	match.Notifier
	chat.Listener
}

// App composes the signed-in session: the match coordinator, the
// active chat controller, the unread badge and the conversation
// directory they share.
type App struct {
	log     *log.Logger
	db      backend.Store
	session *session.Session

	Coordinator *match.Coordinator
	Chat        *chat.Controller
	Unread      *unread.Aggregator

	mu            sync.Mutex
	conversations map[int]types.Conversation
}

func New(logger *log.Logger, db backend.Store, feed realtime.Feed, statsProvider stats.StatsProvider,
	sess *session.Session, ui UI, cfg *config.Config) *App {
	a := &App{
		log:           logger,
		db:            db,
		session:       sess,
		conversations: make(map[int]types.Conversation),
	}

	if statsProvider != nil {
		statsProvider.RegisterMetric(stats.MatchOutcomes)
		statsProvider.RegisterMetric(stats.MessagesSent)
		statsProvider.RegisterMetric(stats.MessagesReceived)
		statsProvider.RegisterMetric(stats.RealtimeDroppedEvents)
		statsProvider.RegisterMetric(stats.UnreadMessages)
	}

	a.Unread = unread.NewAggregator(logger, db, feed, statsProvider, sess.UserId, cfg.ReconcileInterval)
	a.Coordinator = match.NewCoordinator(logger, db, feed, statsProvider, ui,
		sess.UserId, Skills, cfg.PollInterval, cfg.SearchWindow)
	a.Chat = chat.NewController(logger, db, feed, statsProvider, a, a.Unread, ui, sess.UserId)

	return a
}

// Start seeds the unread badge and the conversation directory.
func (a *App) Start() error {
	if err := a.Unread.Start(); err != nil {
		return fmt.Errorf("start unread aggregator: %w", err)
	}

	if err := a.RefreshConversations(); err != nil {
		return fmt.Errorf("load conversations: %w", err)
	}

	return nil
}

// RefreshConversations reloads the friend-link list and resolves the
// peer display names.
func (a *App) RefreshConversations() error {
	friends, err := a.db.ListFriends(a.session.UserId)
	if err != nil {
		return err
	}

	conversations := make(map[int]types.Conversation, len(friends))
	for _, f := range friends {
		conv := types.Conversation{
			Id:        f.Id,
			UserAId:   f.UserAId,
			UserBId:   f.UserBId,
			CreatedAt: f.CreatedAt,
		}

		peer, err := a.db.GetAccountById(conv.OtherUserId(a.session.UserId))
		if err != nil {
			a.log.Printf("resolve peer for conversation %d: %v", f.Id, err)
		} else {
			conv.Peer = types.User{Id: peer.Id, Username: peer.Username}
		}

		conversations[conv.Id] = conv
	}

	a.mu.Lock()
	a.conversations = conversations
	a.mu.Unlock()

	return nil
}

// Conversation implements chat.ConversationDirectory.
func (a *App) Conversation(conversationId int) (types.Conversation, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	conv, ok := a.conversations[conversationId]
	return conv, ok
}

// Remove implements chat.ConversationDirectory.
func (a *App) Remove(conversationId int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.conversations, conversationId)
}

// OpenConversationList returns the known conversations newest first
// and resets the unread badge; the bulk reads that happen when
// individual conversations open are reconciled by the next recount.
func (a *App) OpenConversationList() []types.Conversation {
	a.mu.Lock()
	conversations := make([]types.Conversation, 0, len(a.conversations))
	for _, conv := range a.conversations {
		conversations = append(conversations, conv)
	}
	a.mu.Unlock()

	slices.SortFunc(conversations, func(x, y types.Conversation) int {
		return y.CreatedAt.Compare(x.CreatedAt)
	})

	a.Unread.Reset()

	return conversations
}

// OpenConversation navigates to a conversation, e.g. with the id a
// match outcome carried.
func (a *App) OpenConversation(conversationId int) error {
	return a.Chat.Open(conversationId)
}

// Session returns the signed-in identity.
func (a *App) Session() *session.Session {
	return a.session
}

// Shutdown cancels any in-flight search and releases every stream.
func (a *App) Shutdown() {
	a.Coordinator.Cancel()
	a.Chat.Close()
	a.Unread.Stop()
	a.session = nil
}
