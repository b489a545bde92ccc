package audit

import (
	log "github.com/sirupsen/logrus"
)

// Hooks mirrors the dispatcher hook surface and records each event to the
// trail. Write failures are logged, never surfaced to the user.
type Hooks struct {
	Trail *Trail
}

func (h Hooks) ToolStart(tool string, args map[string]any) {
	if err := h.Trail.Record(EventToolCall, tool, "", args); err != nil {
		log.WithError(err).Warn("audit write failed")
	}
}

func (h Hooks) ToolError(tool string, err error) {
	text := ""
	if err != nil {
		text = err.Error()
	}
	if werr := h.Trail.Record(EventToolError, tool, text, nil); werr != nil {
		log.WithError(werr).Warn("audit write failed")
	}
}

func (h Hooks) AgentAction(text string) {
	if err := h.Trail.Record(EventGroupSend, "", "", map[string]any{"text": text}); err != nil {
		log.WithError(err).Warn("audit write failed")
	}
}
