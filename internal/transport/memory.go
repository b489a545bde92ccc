package transport

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryConversations is an in-process transport used in tests and local
// development. Messages are recorded instead of delivered.
type MemoryConversations struct {
	mu     sync.Mutex
	groups map[string]*MemoryGroup
}

func NewMemoryConversations() *MemoryConversations {
	return &MemoryConversations{groups: make(map[string]*MemoryGroup)}
}

func (c *MemoryConversations) NewGroup(_ context.Context, memberAddrs []string, info GroupInfo) (Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g := &MemoryGroup{id: uuid.NewString(), info: info}
	for _, addr := range memberAddrs {
		g.members = append(g.members, Member{ID: uuid.NewString(), Addresses: []string{addr}})
	}
	c.groups[g.id] = g
	return g, nil
}

func (c *MemoryConversations) FindGroup(_ context.Context, id string) (Group, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	g, ok := c.groups[id]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return g, nil
}

type MemoryGroup struct {
	mu       sync.Mutex
	id       string
	info     GroupInfo
	members  []Member
	admins   []string
	messages []string
}

func (g *MemoryGroup) ID() string { return g.id }

func (g *MemoryGroup) Members(_ context.Context) ([]Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Member(nil), g.members...), nil
}

func (g *MemoryGroup) PromoteAdmin(_ context.Context, memberID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.admins = append(g.admins, memberID)
	return nil
}

func (g *MemoryGroup) Send(_ context.Context, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages = append(g.messages, text)
	return nil
}

// Admins returns the member ids promoted so far.
func (g *MemoryGroup) Admins() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.admins...)
}

// Messages returns everything sent into the group, in order.
func (g *MemoryGroup) Messages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.messages...)
}

// Info returns the metadata the group was created with.
func (g *MemoryGroup) Info() GroupInfo {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.info
}
