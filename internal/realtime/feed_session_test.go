package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedSessionJoinsGlobalGroup(t *testing.T) {
	registry := NewRegistry()
	broker := NewBroker(registry)

	sender := &recordingSender{}
	session := NewFeedSession(registry)
	session.Join(sender)

	require.Len(t, registry.MembersOf(GroupFeed), 1)

	broker.Publish(GroupFeed, map[string]string{"type": "post_update", "event": "new_post"}, "")
	assert.Len(t, sender.received(), 1)
}

func TestFeedSessionCloseLeavesGroup(t *testing.T) {
	registry := NewRegistry()

	session := NewFeedSession(registry)
	session.Join(&recordingSender{})
	session.Close()
	session.Close() // idempotent

	assert.Empty(t, registry.MembersOf(GroupFeed))
}

func TestFeedBroadcastWithNoListeners(t *testing.T) {
	broker := NewBroker(NewRegistry())

	// a like with zero connected feed members must not fail the caller
	broker.Publish(GroupFeed, map[string]any{
		"type": "post_update", "event": "like", "post_id": 1, "likes_count": 3,
	}, "")
}
