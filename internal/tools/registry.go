// Package tools dispatches validated agent tool calls to the segugio
// backend and the messaging layer. An invocation moves through
// received -> validated -> identity-resolved -> backend-called -> rendered;
// validation rejections and downstream failures terminate it early with a
// user-facing message that never carries internal detail.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Messenger delivers text into the session's notification channel.
type Messenger interface {
	Send(ctx context.Context, text string) error
}

// Session identifies one conversation: the end user talking to the bot, and
// the channel replies go into. Channel may be nil when the surface has no
// side channel (e.g. direct message); sends are then skipped.
type Session struct {
	UserAddress string
	BotAddress  string
	Channel     Messenger
}

// Send delivers text into the session channel when one is attached.
func (s Session) Send(ctx context.Context, text string) error {
	if s.Channel == nil {
		return nil
	}
	return s.Channel.Send(ctx, text)
}

// Invocation is one resolved tool call.
type Invocation struct {
	Session Session
	Args    map[string]any
}

// Handler executes one operation and returns the user-facing result text.
type Handler func(ctx context.Context, inv Invocation) (string, error)

// Spec binds an operation schema to a description for the agent runtime.
type Spec struct {
	Name        string
	Description string
	Schema      Schema
}

// Schema is implemented by the operation schemas in internal/schema.
type Schema interface {
	Apply(raw map[string]any) (map[string]any, error)
}

type registryItem struct {
	spec    Spec
	handler Handler
}

// Dispatcher routes tool calls by name. It holds no per-session state; a
// single instance serves every conversation.
type Dispatcher struct {
	hooks Hooks
	mu    sync.RWMutex
	tools map[string]registryItem
}

func NewDispatcher(hooks Hooks) *Dispatcher {
	if hooks == nil {
		hooks = NopHooks{}
	}
	return &Dispatcher{hooks: hooks, tools: make(map[string]registryItem)}
}

func (d *Dispatcher) Register(spec Spec, handler Handler) error {
	if spec.Name == "" {
		return errors.New("tool name is required")
	}
	if handler == nil {
		return errors.New("tool handler is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.tools[spec.Name]; exists {
		return fmt.Errorf("tool already registered: %s", spec.Name)
	}
	d.tools[spec.Name] = registryItem{spec: spec, handler: handler}
	return nil
}

// List returns the registered specs for the agent runtime to advertise.
func (d *Dispatcher) List() []Spec {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]Spec, 0, len(d.tools))
	for _, item := range d.tools {
		out = append(out, item.spec)
	}
	return out
}

// Execute runs one tool call. The returned text is always suitable for the
// end user; the error, when non-nil, carries the internal cause and has
// already been reported through the hooks.
func (d *Dispatcher) Execute(ctx context.Context, session Session, name string, raw map[string]any) (string, error) {
	if raw == nil {
		raw = map[string]any{}
	}

	d.hooks.ToolStart(name, raw)

	d.mu.RLock()
	item, ok := d.tools[name]
	d.mu.RUnlock()
	if !ok {
		err := &ToolError{Code: ErrCodeNotFound, Tool: name, Message: "tool not registered"}
		d.hooks.ToolError(name, err)
		return "I don't know how to do that.", err
	}

	args := raw
	if item.spec.Schema != nil {
		resolved, err := item.spec.Schema.Apply(raw)
		if err != nil {
			// Rejected: explain to the user, no backend call has happened.
			toolErr := wrapError(ErrCodeValidation, name, err)
			d.hooks.ToolError(name, toolErr)
			return fmt.Sprintf("I can't do that: %v.", err), toolErr
		}
		args = resolved
	}

	text, err := item.handler(ctx, Invocation{Session: session, Args: args})
	if err != nil {
		d.hooks.ToolError(name, err)
	}
	return text, err
}
