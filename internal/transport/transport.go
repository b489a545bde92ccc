// Package transport defines the boundary to the group-messaging layer. The
// bridge only needs to create groups, look them up, grant admin rights and
// send text; the wire protocol and its session cryptography live behind these
// interfaces.
package transport

import (
	"context"
	"errors"
)

// ErrGroupNotFound is returned by FindGroup when no group has the given id.
var ErrGroupNotFound = errors.New("transport: group not found")

// GroupInfo carries the creation metadata for a new group.
type GroupInfo struct {
	Name        string
	Description string
	ImageURL    string
}

// Member is one participant of a group. A member may hold several wallet
// addresses; the transport-internal id is what admin operations key on.
type Member struct {
	ID        string
	Addresses []string
}

// HasAddress reports whether the member holds addr, case-insensitively.
func (m Member) HasAddress(addr string) bool {
	for _, a := range m.Addresses {
		if equalFoldAddr(a, addr) {
			return true
		}
	}
	return false
}

// Group is a live handle on a multi-party conversation.
type Group interface {
	ID() string
	Members(ctx context.Context) ([]Member, error)
	PromoteAdmin(ctx context.Context, memberID string) error
	Send(ctx context.Context, text string) error
}

// Conversations is the transport's conversation surface.
type Conversations interface {
	NewGroup(ctx context.Context, memberAddrs []string, info GroupInfo) (Group, error)
	FindGroup(ctx context.Context, id string) (Group, error)
}

func equalFoldAddr(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
