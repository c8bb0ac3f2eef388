package docchat_test

import (
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversation_Append(t *testing.T) {
	t.Parallel()

	t.Run("rejects append while trailing message pending", func(t *testing.T) {
		t.Parallel()
		c := docchat.NewConversation("c")
		require.NoError(t, c.Append(docchat.Message{Text: "q", Sender: docchat.SenderUser, Terminal: true}))
		require.NoError(t, c.Append(docchat.Message{Sender: docchat.SenderBot}))

		err := c.Append(docchat.Message{Sender: docchat.SenderBot})
		assert.ErrorIs(t, err, docchat.ErrSessionActive)
		err = c.Append(docchat.Message{Text: "q2", Sender: docchat.SenderUser, Terminal: true})
		assert.ErrorIs(t, err, docchat.ErrSessionActive)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("rejects invalid messages", func(t *testing.T) {
		t.Parallel()
		c := docchat.NewConversation("c")
		assert.ErrorIs(t, c.Append(docchat.Message{Sender: docchat.SenderUser}), docchat.ErrValidation)
		assert.ErrorIs(t, c.Append(docchat.Message{Sender: "robot", Terminal: true}), docchat.ErrValidation)
		assert.ErrorIs(t, c.Append(docchat.Message{Sender: docchat.SenderBot, Failed: true}), docchat.ErrValidation)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("stamps timestamps", func(t *testing.T) {
		t.Parallel()
		c := docchat.NewConversation("c")
		require.NoError(t, c.Append(docchat.Message{Text: "q", Sender: docchat.SenderUser, Terminal: true}))
		last, ok := c.Last()
		require.True(t, ok)
		assert.False(t, last.Timestamp.IsZero())
		assert.Equal(t, last.Timestamp, c.UpdatedAt)
	})
}

func TestConversation_MessagesReturnsCopy(t *testing.T) {
	t.Parallel()
	c := docchat.NewConversation("c")
	require.NoError(t, c.Append(docchat.Message{Text: "q", Sender: docchat.SenderUser, Terminal: true}))

	msgs := c.Messages()
	msgs[0].Text = "changed"

	last, _ := c.Last()
	assert.Equal(t, "q", last.Text)
}

func TestConversation_AtMostOnePendingMessage(t *testing.T) {
	t.Parallel()
	a := docchat.NewAssembler(docchat.NewConversation("c"))
	check := func() {
		t.Helper()
		msgs := a.Conversation().Messages()
		pending := 0
		for i, m := range msgs {
			if m.Pending() {
				pending++
				assert.Equal(t, len(msgs)-1, i, "pending message must be last")
			}
		}
		assert.LessOrEqual(t, pending, 1)
	}

	for _, q := range []string{"a", "b", "c"} {
		require.NoError(t, a.Submit(q))
		check()
		require.NoError(t, a.Apply("x"))
		check()
		_ = a.Submit("again")
		check()
		if q == "b" {
			require.NoError(t, a.Fail(docchat.ErrUpstreamAborted))
		} else {
			require.NoError(t, a.Seal())
		}
		check()
	}
	assert.Equal(t, 6, a.Conversation().Len())
}

func TestConversation_EmptyLast(t *testing.T) {
	t.Parallel()
	c := docchat.NewConversation("c")
	_, ok := c.Last()
	assert.False(t, ok)
	assert.False(t, c.Pending())
}
