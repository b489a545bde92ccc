package tools

import (
	log "github.com/sirupsen/logrus"
)

// Hooks receives the fixed set of dispatcher events. Implementations must be
// safe to call from any invocation; errors inside a hook never affect the
// invocation itself.
type Hooks interface {
	ToolStart(tool string, args map[string]any)
	ToolError(tool string, err error)
	AgentAction(text string)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) ToolStart(string, map[string]any) {}
func (NopHooks) ToolError(string, error)          {}
func (NopHooks) AgentAction(string)               {}

// LogHooks writes every event to the structured log.
type LogHooks struct{}

func (LogHooks) ToolStart(tool string, args map[string]any) {
	log.WithFields(log.Fields{"tool": tool, "args": args}).Info("tool start")
}

func (LogHooks) ToolError(tool string, err error) {
	log.WithError(err).WithField("tool", tool).Error("tool error")
}

func (LogHooks) AgentAction(text string) {
	log.WithField("text", text).Info("agent action")
}

// MultiHooks fans every event out to each hook in order.
func MultiHooks(hooks ...Hooks) Hooks {
	return multiHooks(hooks)
}

type multiHooks []Hooks

func (m multiHooks) ToolStart(tool string, args map[string]any) {
	for _, h := range m {
		h.ToolStart(tool, args)
	}
}

func (m multiHooks) ToolError(tool string, err error) {
	for _, h := range m {
		h.ToolError(tool, err)
	}
}

func (m multiHooks) AgentAction(text string) {
	for _, h := range m {
		h.AgentAction(text)
	}
}
