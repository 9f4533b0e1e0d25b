package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopSender struct{}

func (nopSender) Send([]byte) error { return nil }

func TestRegistryRegisterAssignsUniqueIDs(t *testing.T) {
	r := NewRegistry()

	a := r.Register(nopSender{})
	b := r.Register(nopSender{})

	require.NotEmpty(t, a)
	require.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}

func TestRegistryJoinIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := r.Register(nopSender{})

	r.Join(id, "conversation:1")
	r.Join(id, "conversation:1")
	r.Join(id, "conversation:1")

	assert.Equal(t, []string{id}, r.MembersOf("conversation:1"))
}

func TestRegistryLeaveIsIdempotent(t *testing.T) {
	r := NewRegistry()
	id := r.Register(nopSender{})
	r.Join(id, "conversation:1")

	r.Leave(id, "conversation:1")
	r.Leave(id, "conversation:1")
	// leaving a group never joined is a no-op too
	r.Leave(id, "conversation:2")

	assert.Empty(t, r.MembersOf("conversation:1"))
}

func TestRegistryUnregisterLeavesAllGroups(t *testing.T) {
	r := NewRegistry()
	id := r.Register(nopSender{})
	other := r.Register(nopSender{})

	r.Join(id, "conversation:1")
	r.Join(id, GroupFeed)
	r.Join(other, "conversation:1")

	r.Unregister(id)

	assert.Equal(t, []string{other}, r.MembersOf("conversation:1"))
	assert.Empty(t, r.MembersOf(GroupFeed))
	assert.Nil(t, r.senderOf(id))
}

func TestRegistryUnregisterTwiceIsSafe(t *testing.T) {
	r := NewRegistry()
	id := r.Register(nopSender{})
	r.Join(id, "conversation:1")

	r.Unregister(id)
	r.Unregister(id)

	assert.Empty(t, r.MembersOf("conversation:1"))
}

func TestRegistryPrunesEmptyGroups(t *testing.T) {
	r := NewRegistry()
	id := r.Register(nopSender{})
	r.Join(id, "conversation:9")
	r.Leave(id, "conversation:9")

	r.mu.RLock()
	defer r.mu.RUnlock()
	assert.NotContains(t, r.groups, "conversation:9")
}

func TestRegistryJoinUnknownConnectionIsIgnored(t *testing.T) {
	r := NewRegistry()

	r.Join("ghost", "conversation:1")

	assert.Empty(t, r.MembersOf("conversation:1"))
}
