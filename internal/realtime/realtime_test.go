package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMatch(t *testing.T) {
	tcases := []struct {
		name   string
		table  string
		record string
		err    bool
	}{
		{
			name:   "valid record",
			table:  TableMatches,
			record: `{"id":9,"user_a_id":1,"user_b_id":2,"created_at":"2026-03-01T12:00:00Z"}`,
			err:    false,
		},
		{
			name:   "wrong table",
			table:  TableMessages,
			record: `{"id":9,"user_a_id":1,"user_b_id":2}`,
			err:    true,
		},
		{
			name:   "missing participants",
			table:  TableMatches,
			record: `{"id":9}`,
			err:    true,
		},
		{
			name:   "not json",
			table:  TableMatches,
			record: `nonsense`,
			err:    true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			rec, err := DecodeMatch(ChangeEvent{Table: tc.table, Record: json.RawMessage(tc.record)})
			if tc.err {
				assert.Error(t, err, "expected decode to fail")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 9, rec.Id)
			assert.True(t, rec.HasUser(1))
			assert.Equal(t, 2, rec.OtherUserId(1))
			assert.Equal(t, 1, rec.OtherUserId(2))
		})
	}
}

func TestDecodeMessage(t *testing.T) {
	rec, err := DecodeMessage(ChangeEvent{
		Table:  TableMessages,
		Record: json.RawMessage(`{"id":3,"conversation_id":42,"sender_id":7,"content":"hi","read":false,"created_at":"2026-03-01T12:00:00Z"}`),
	})
	require.NoError(t, err)
	assert.Equal(t, 42, rec.ConversationId)
	assert.Equal(t, "hi", rec.Content)

	_, err = DecodeMessage(ChangeEvent{Table: TableMessages, Record: json.RawMessage(`{"content":"hi"}`)})
	assert.Error(t, err, "expected missing ids to fail validation")
}

func TestFakeFeed_filterRouting(t *testing.T) {
	feed := NewFakeFeed()

	scoped, err := feed.Subscribe(TableMessages, &Filter{Column: "conversation_id", Value: 42})
	require.NoError(t, err)
	global, err := feed.Subscribe(TableMessages, nil)
	require.NoError(t, err)
	other, err := feed.Subscribe(TableMatches, nil)
	require.NoError(t, err)

	require.NoError(t, feed.Emit(TableMessages, MessageRecord{Id: 1, ConversationId: 42, SenderId: 7, CreatedAt: time.Now()}))
	require.NoError(t, feed.Emit(TableMessages, MessageRecord{Id: 2, ConversationId: 9, SenderId: 7, CreatedAt: time.Now()}))

	assert.Len(t, scoped.events, 1, "expected only the matching conversation's event")
	assert.Len(t, global.events, 2, "expected the unfiltered subscription to see both events")
	assert.Len(t, other.events, 0, "expected no cross-table delivery")
}

func TestSubscription_closeIsIdempotent(t *testing.T) {
	feed := NewFakeFeed()

	sub, err := feed.Subscribe(TableMessages, nil)
	require.NoError(t, err)
	require.Equal(t, 1, feed.OpenSubscriptions())

	sub.Close()
	assert.Equal(t, 0, feed.OpenSubscriptions())

	// a second close must not panic or double-release
	sub.Close()

	_, open := <-sub.Events()
	assert.False(t, open, "expected the events channel to be closed")
}
