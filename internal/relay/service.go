// Package relay is the authenticated HTTP surface the trading backend calls
// back into: it provisions notification groups and pushes notification text
// into existing ones.
package relay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"segugio/internal/groupstore"
	"segugio/internal/tools"
	"segugio/internal/transport"
)

// Provisioner creates the notification group for a pair.
type Provisioner interface {
	Provision(ctx context.Context, userAddr, botAddr string) (string, error)
}

// ErrGroupNotFound mirrors the transport error at the service boundary.
var ErrGroupNotFound = transport.ErrGroupNotFound

// Registry is the persistent (user,bot) -> group id mapping.
type Registry interface {
	Lookup(ctx context.Context, userAddr, botAddr string) (string, error)
	Save(ctx context.Context, userAddr, botAddr, groupID string) error
}

// Service implements group creation and message push over the transport. It
// is shared between the HTTP handlers and the in-process tool dispatcher so
// both paths agree on which group belongs to a pair.
type Service struct {
	provisioner   Provisioner
	registry      Registry
	conversations transport.Conversations
}

func NewService(provisioner Provisioner, registry Registry, conversations transport.Conversations) *Service {
	return &Service{provisioner: provisioner, registry: registry, conversations: conversations}
}

// CreateGroup returns the group for the pair, provisioning one only when the
// registry has none. Creation is idempotent per pair: calling twice yields
// the same id.
func (s *Service) CreateGroup(ctx context.Context, userAddr, botAddr string) (string, error) {
	if s.registry != nil {
		existing, err := s.registry.Lookup(ctx, userAddr, botAddr)
		if err == nil {
			log.WithFields(log.Fields{"group_id": existing, "user": userAddr}).Debug("reusing existing group")
			return existing, nil
		}
		if !errors.Is(err, groupstore.ErrNotFound) {
			log.WithError(err).Warn("group registry lookup failed, provisioning anyway")
		}
	}

	groupID, err := s.provisioner.Provision(ctx, userAddr, botAddr)
	if err != nil {
		return "", fmt.Errorf("relay: provision group: %w", err)
	}

	if s.registry != nil {
		if err := s.registry.Save(ctx, userAddr, botAddr, groupID); err != nil {
			// The group exists; a registry miss only costs idempotency.
			log.WithError(err).WithField("group_id", groupID).Error("failed to record group in registry")
		}
	}
	return groupID, nil
}

// SessionChannel returns the pair's notification group as a message sink.
// The group is looked up on every send, not up front, so a group created
// mid-invocation receives the messages produced right after it.
func (s *Service) SessionChannel(userAddr, botAddr string) tools.Messenger {
	if s.registry == nil {
		return nil
	}
	return &pairChannel{service: s, userAddr: userAddr, botAddr: botAddr}
}

type pairChannel struct {
	service  *Service
	userAddr string
	botAddr  string
}

// Send delivers text into the pair's group. A pair without a group has
// nowhere to deliver to; those sends are dropped.
func (p *pairChannel) Send(ctx context.Context, text string) error {
	groupID, err := p.service.registry.Lookup(ctx, p.userAddr, p.botAddr)
	if errors.Is(err, groupstore.ErrNotFound) {
		log.WithField("user", p.userAddr).Debug("no group for pair, dropping channel message")
		return nil
	}
	if err != nil {
		return fmt.Errorf("relay: group lookup for %s: %w", p.userAddr, err)
	}

	g, err := p.service.conversations.FindGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("relay: find group %s: %w", groupID, err)
	}
	return g.Send(ctx, text)
}

// PushMessage delivers a multi-line body into the group, one message per
// line, preserving order. Returns the number of messages sent.
func (s *Service) PushMessage(ctx context.Context, groupID, body string) (int, error) {
	g, err := s.conversations.FindGroup(ctx, groupID)
	if err != nil {
		if errors.Is(err, transport.ErrGroupNotFound) {
			return 0, ErrGroupNotFound
		}
		return 0, fmt.Errorf("relay: find group %s: %w", groupID, err)
	}

	sent := 0
	for _, line := range strings.Split(body, "\n") {
		if err := g.Send(ctx, line); err != nil {
			return sent, fmt.Errorf("relay: send into %s: %w", groupID, err)
		}
		sent++
	}
	return sent, nil
}
