// Package realtime relays change notifications from writers to open pages.
// Writers publish a small event after a successful mutation; pages hold a
// subscription and re-fetch whatever they display when any event arrives.
// Payloads carry no row data, only enough to know that a refresh is due.
package realtime

import (
	"context"
	"strconv"
)

// Op labels what kind of mutation produced an event.
type Op string

const (
	OpInsert Op = "INSERT"
	OpDelete Op = "DELETE"
)

// Event is one change notification. PostID is set for reply events so a
// post page can tell which thread changed; consumers refresh on any event
// regardless.
type Event struct {
	Table  string `json:"table"`
	Op     Op     `json:"op"`
	PostID uint   `json:"post_id,omitempty"`
}

// Scope names a channel of events. Listings watch the posts scope; a post
// page watches the replies scope for its own id.
type Scope struct {
	channel string
}

// Posts is the scope for post creations and deletions, forum-wide.
func Posts() Scope {
	return Scope{channel: "changes:posts"}
}

// PostReplies is the scope for reply changes under one post.
func PostReplies(postID uint) Scope {
	return Scope{channel: "changes:replies:" + strconv.FormatUint(uint64(postID), 10)}
}

// Channel returns the scope's wire name, also used as the Redis channel.
func (s Scope) Channel() string {
	return s.channel
}

// Subscription is one consumer's feed of events. C is closed after Close
// returns or when the hub shuts the subscription down.
type Subscription struct {
	C     <-chan Event
	close func()
}

// Close detaches the subscription from its hub. Safe to call more than once.
func (s *Subscription) Close() {
	if s.close != nil {
		s.close()
		s.close = nil
	}
}

// Hub fans events out from publishers to subscribers. Publish must not block
// on slow consumers.
type Hub interface {
	Publish(ctx context.Context, scope Scope, ev Event) error
	Subscribe(ctx context.Context, scope Scope) (*Subscription, error)
}
