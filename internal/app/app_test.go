package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pathfinder132/SkillSwap/internal/backend"
	"github.com/Pathfinder132/SkillSwap/internal/config"
	"github.com/Pathfinder132/SkillSwap/internal/realtime"
	"github.com/Pathfinder132/SkillSwap/internal/session"
	"github.com/Pathfinder132/SkillSwap/internal/testutil"
	"github.com/Pathfinder132/SkillSwap/internal/types"
)

type nopUI struct{}

func (nopUI) NotifyOutcome(types.MatchOutcome)     {}
func (nopUI) HistoryLoaded(int, []types.Message)   {}
func (nopUI) MessageAdded(int, types.Message)      {}
func (nopUI) MessageRetracted(int, string, string) {}
func (nopUI) ConversationGone(int)                 {}

func testConfig() *config.Config {
	return &config.Config{
		BackendDSN:        "postgres://localhost/skillswap",
		RealtimeURL:       "ws://localhost/realtime",
		AccessToken:       "token",
		PollInterval:      time.Second,
		SearchWindow:      30 * time.Second,
		ReconcileInterval: 0,
	}
}

func newTestApp(t *testing.T, db backend.Store, feed realtime.Feed) *App {
	t.Helper()
	sess := &session.Session{UserId: 1, Username: "alex"}
	return New(testutil.TestLogger(t), db, feed, nil, sess, nopUI{}, testConfig())
}

func TestApp_Start(t *testing.T) {
	db := &backend.MockStore{}
	db.On("CountUnread", 1).Return(3, nil)
	db.On("ListFriends", 1).Return([]backend.Friend{
		{Id: 10, UserAId: 1, UserBId: 2, CreatedAt: types.Now()},
	}, nil)
	db.On("GetAccountById", 2).Return(backend.User{Id: 2, Username: "casey"}, nil)

	feed := realtime.NewFakeFeed()
	a := newTestApp(t, db, feed)

	require.NoError(t, a.Start())
	defer a.Shutdown()

	assert.Equal(t, 3, a.Unread.Count())

	conv, ok := a.Conversation(10)
	require.True(t, ok, "expected conversation 10 in the directory")
	assert.Equal(t, "casey", conv.Peer.Username)
	assert.Equal(t, 2, conv.OtherUserId(1))
}

func TestApp_RefreshConversationsPeerLookupFailure(t *testing.T) {
	db := &backend.MockStore{}
	db.On("ListFriends", 1).Return([]backend.Friend{
		{Id: 10, UserAId: 1, UserBId: 2, CreatedAt: types.Now()},
	}, nil)
	db.On("GetAccountById", 2).Return(backend.User{}, assert.AnError)

	a := newTestApp(t, db, realtime.NewFakeFeed())

	require.NoError(t, a.RefreshConversations())

	conv, ok := a.Conversation(10)
	require.True(t, ok, "conversation should be listed even without a resolved peer name")
	assert.Empty(t, conv.Peer.Username)
}

func TestApp_OpenConversationList(t *testing.T) {
	now := types.Now()
	db := &backend.MockStore{}
	db.On("CountUnread", 1).Return(5, nil)
	db.On("ListFriends", 1).Return([]backend.Friend{
		{Id: 10, UserAId: 1, UserBId: 2, CreatedAt: now.Add(-time.Hour)},
		{Id: 11, UserAId: 3, UserBId: 1, CreatedAt: now},
		{Id: 12, UserAId: 1, UserBId: 4, CreatedAt: now.Add(-2 * time.Hour)},
	}, nil)
	db.On("GetAccountById", 2).Return(backend.User{Id: 2, Username: "casey"}, nil)
	db.On("GetAccountById", 3).Return(backend.User{Id: 3, Username: "jordan"}, nil)
	db.On("GetAccountById", 4).Return(backend.User{Id: 4, Username: "riley"}, nil)

	a := newTestApp(t, db, realtime.NewFakeFeed())
	require.NoError(t, a.Start())
	defer a.Shutdown()

	conversations := a.OpenConversationList()

	require.Len(t, conversations, 3)
	assert.Equal(t, []int{11, 10, 12}, []int{
		conversations[0].Id, conversations[1].Id, conversations[2].Id,
	}, "expected newest conversation first")
	assert.Equal(t, 0, a.Unread.Count(), "opening the list should clear the badge")
}

func TestApp_RemoveConversation(t *testing.T) {
	db := &backend.MockStore{}
	db.On("ListFriends", 1).Return([]backend.Friend{
		{Id: 10, UserAId: 1, UserBId: 2, CreatedAt: types.Now()},
	}, nil)
	db.On("GetAccountById", 2).Return(backend.User{Id: 2, Username: "casey"}, nil)

	a := newTestApp(t, db, realtime.NewFakeFeed())
	require.NoError(t, a.RefreshConversations())

	a.Remove(10)

	_, ok := a.Conversation(10)
	assert.False(t, ok)
}

func TestApp_ShutdownReleasesSubscriptions(t *testing.T) {
	db := &backend.MockStore{}
	db.On("CountUnread", 1).Return(0, nil)
	db.On("ListFriends", 1).Return([]backend.Friend{}, nil)

	feed := realtime.NewFakeFeed()
	a := newTestApp(t, db, feed)
	require.NoError(t, a.Start())

	a.Shutdown()

	assert.Eventually(t, func() bool {
		return feed.OpenSubscriptions() == 0
	}, time.Second, 10*time.Millisecond, "expected shutdown to release every stream")
	assert.Nil(t, a.Session())
}
