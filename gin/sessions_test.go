package gin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionGuard(t *testing.T) {
	t.Parallel()
	g := newSessionGuard()

	release, ok := g.acquire("c1")
	require.True(t, ok)
	_, ok = g.acquire("c1")
	assert.False(t, ok, "second acquire of the same conversation")

	other, ok := g.acquire("c2")
	require.True(t, ok)
	assert.Equal(t, 2, g.len())

	release()
	other()
	assert.Equal(t, 0, g.len())

	_, ok = g.acquire("c1")
	assert.True(t, ok, "released conversation can stream again")
}
