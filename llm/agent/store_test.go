package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func turn(user string, withTool bool) []*schema.Message {
	msgs := []*schema.Message{schema.UserMessage(user)}
	if withTool {
		msgs = append(msgs,
			toolCall("c-"+user, "get_stock_price", `{"stock_name":"AAPL"}`),
			schema.ToolMessage("42", "c-"+user),
		)
	}
	return append(msgs, schema.AssistantMessage("ok "+user, nil))
}

func TestCompactor_NoLimits(t *testing.T) {
	msgs := append(turn("a", true), turn("b", false)...)
	out := Compactor{}.Compact(msgs)
	assert.Equal(t, msgs, out)
}

func TestCompactor_WindowCutsAtUserMessage(t *testing.T) {
	var msgs []*schema.Message
	msgs = append(msgs, turn("a", true)...)  // 4
	msgs = append(msgs, turn("b", true)...)  // 4
	msgs = append(msgs, turn("c", false)...) // 2

	out := Compactor{MaxMessages: 5}.Compact(msgs)
	require.NotEmpty(t, out)
	assert.Equal(t, schema.User, out[0].Role)
	assert.Equal(t, "c", out[0].Content)
	assert.Len(t, out, 2)

	out = Compactor{MaxMessages: 6}.Compact(msgs)
	assert.Equal(t, "b", out[0].Content)
	assert.Len(t, out, 6)
}

func TestCompactor_WindowWithoutUserMessageKeepsLastTurn(t *testing.T) {
	msgs := turn("a", true)
	msgs = append(msgs, schema.AssistantMessage("x", nil), schema.AssistantMessage("y", nil))

	out := Compactor{MaxMessages: 2}.Compact(msgs)
	assert.Equal(t, msgs, out)
}

func TestCompactor_CompressesToolResponse(t *testing.T) {
	long := strings.Repeat("abcdefghi.\n", 100)
	msgs := []*schema.Message{
		schema.UserMessage("q"),
		toolCall("c1", "get_stock_price", "{}"),
		schema.ToolMessage(long, "c1"),
	}

	out := Compactor{MaxToolResponse: 200}.Compact(msgs)
	tool := out[2]
	assert.Equal(t, "c1", tool.ToolCallID)
	assert.Less(t, len(tool.Content), len(long))
	assert.Contains(t, tool.Content, "[Content truncated: original 1100 chars")

	// 原消息不被修改
	assert.Equal(t, long, msgs[2].Content)
}

func storeBackends(t *testing.T) map[string]ConversationStore {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return map[string]ConversationStore{
		"memory": NewMemoryStore(Compactor{MaxMessages: 4}),
		"redis":  NewRedisStore(client, "test:", 0, Compactor{MaxMessages: 4}),
	}
}

func TestConversationStore_Contract(t *testing.T) {
	for name, store := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.Load(ctx, "t1")
			assert.ErrorIs(t, err, ErrThreadNotFound)

			msgs := append(turn("a", true), turn("b", false)...)
			thread := &Thread{
				ID:       "t1",
				Turn:     2,
				Messages: msgs,
				Pending:  &Interrupt{CheckPointID: "t1:2", Question: "Approve?", Stock: "AAPL", Quantity: 1, InputLen: 6},
			}
			require.NoError(t, store.Save(ctx, thread))
			assert.Len(t, thread.Messages, 6, "caller's thread is not compacted in place")

			got, err := store.Load(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, 2, got.Turn)
			require.Len(t, got.Messages, 2)
			assert.Equal(t, "b", got.Messages[0].Content)
			require.NotNil(t, got.Pending)
			assert.Equal(t, "t1:2", got.Pending.CheckPointID)
			assert.Equal(t, 6, got.Pending.InputLen)
			assert.False(t, got.UpdatedAt.IsZero())

			// 修改返回值不影响存储
			got.Pending.Question = "changed"
			again, err := store.Load(ctx, "t1")
			require.NoError(t, err)
			assert.Equal(t, "Approve?", again.Pending.Question)

			require.NoError(t, store.Delete(ctx, "t1"))
			_, err = store.Load(ctx, "t1")
			assert.ErrorIs(t, err, ErrThreadNotFound)
			assert.NoError(t, store.Delete(ctx, "t1"))

			assert.Error(t, store.Save(ctx, &Thread{}))
		})
	}
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, "desk:", time.Minute, Compactor{})
	require.NoError(t, store.Save(context.Background(), &Thread{ID: "x"}))

	assert.True(t, mr.Exists("desk:thread:x"))
	assert.Equal(t, time.Minute, mr.TTL("desk:thread:x"))

	mr.FastForward(2 * time.Minute)
	_, err := store.Load(context.Background(), "x")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestRedisStore_CorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set("p:thread:bad", "{not json"))
	_, err := NewRedisStore(client, "p:", 0, Compactor{}).Load(context.Background(), "bad")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrThreadNotFound)
}
