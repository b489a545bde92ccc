// Package group provisions the notification channel for a (user, bot) pair.
package group

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"segugio/internal/transport"
)

// Creation metadata for every provisioned group.
const (
	GroupName        = "Your Segugios"
	GroupDescription = "A group of wallets that you can copy trades from"
	GroupImageURL    = ""
)

var onboardingMessages = []string{
	"Welcome to your Segugios!",
	"Here you will see all the trades your segugios copy for you.",
	"(Btw, you are an admin of this group as well as the bot)",
}

type Provisioner struct {
	conversations transport.Conversations
}

func NewProvisioner(conversations transport.Conversations) *Provisioner {
	return &Provisioner{conversations: conversations}
}

// Provision creates a group containing exactly the user and the bot, makes
// the user an admin and posts the onboarding messages. Once the group exists
// its id is the result: failures in the admin grant or the onboarding sends
// are logged and do not discard it.
func (p *Provisioner) Provision(ctx context.Context, userAddr, botAddr string) (string, error) {
	g, err := p.conversations.NewGroup(ctx, []string{userAddr, botAddr}, transport.GroupInfo{
		Name:        GroupName,
		Description: GroupDescription,
		ImageURL:    GroupImageURL,
	})
	if err != nil {
		return "", fmt.Errorf("group: create for %s: %w", userAddr, err)
	}

	logger := log.WithFields(log.Fields{"group_id": g.ID(), "user": userAddr})

	if memberID, ok := p.findUserMember(ctx, g, userAddr); ok {
		if err := g.PromoteAdmin(ctx, memberID); err != nil {
			logger.WithError(err).Error("failed to grant group admin to user")
		}
	} else {
		logger.Error("user not found among group members, skipping admin grant")
	}

	for _, msg := range onboardingMessages {
		if err := g.Send(ctx, msg); err != nil {
			logger.WithError(err).Error("failed to send onboarding message")
			break
		}
	}

	logger.Info("group provisioned")
	return g.ID(), nil
}

func (p *Provisioner) findUserMember(ctx context.Context, g transport.Group, userAddr string) (string, bool) {
	members, err := g.Members(ctx)
	if err != nil {
		log.WithError(err).WithField("group_id", g.ID()).Error("failed to list group members")
		return "", false
	}
	for _, m := range members {
		if m.HasAddress(userAddr) {
			return m.ID, true
		}
	}
	return "", false
}
