package realtime

import "sync"

// FeedSession is the stateless relay for the global feed channel. Every
// connection joins feed:global, authenticated or not, and only ever receives:
// post/like/comment events are published by the REST layer after the storage
// write commits.
type FeedSession struct {
	registry  *Registry
	connID    string
	closeOnce sync.Once
}

func NewFeedSession(registry *Registry) *FeedSession {
	return &FeedSession{registry: registry}
}

// Join registers the connection and adds it to the global feed group.
func (s *FeedSession) Join(sender Sender) {
	s.connID = s.registry.Register(sender)
	s.registry.Join(s.connID, GroupFeed)
}

// Close leaves the feed group and drops the connection. Idempotent.
func (s *FeedSession) Close() {
	s.closeOnce.Do(func() {
		if s.connID != "" {
			s.registry.Unregister(s.connID)
		}
	})
}
