// Package discordx binds the transport interfaces to Discord. It exists for
// deployments without access to the production messaging network: a group
// becomes a guild text channel, and wallet addresses are mapped to Discord
// user ids through a configured directory.
package discordx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"segugio/internal/transport"
)

const (
	memberAllow = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	adminAllow  = memberAllow | discordgo.PermissionManageChannels | discordgo.PermissionManageMessages
)

type Binding struct {
	session *discordgo.Session
	guildID string
	byAddr  map[string]string
	byUser  map[string]string
}

// New opens a Discord session. directory maps lowercase wallet addresses to
// Discord user ids; addresses without an entry become silent members.
func New(token, guildID string, directory map[string]string) (*Binding, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discordx: token is required")
	}
	if strings.TrimSpace(guildID) == "" {
		return nil, errors.New("discordx: guild id is required")
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("discordx: open session: %w", err)
	}

	b := &Binding{session: s, guildID: guildID, byAddr: map[string]string{}, byUser: map[string]string{}}
	for addr, userID := range directory {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || userID == "" {
			continue
		}
		b.byAddr[addr] = userID
		b.byUser[userID] = addr
	}
	return b, nil
}

func (b *Binding) Close() error {
	return b.session.Close()
}

func (b *Binding) NewGroup(_ context.Context, memberAddrs []string, info transport.GroupInfo) (transport.Group, error) {
	var overwrites []*discordgo.PermissionOverwrite
	for _, addr := range memberAddrs {
		userID, ok := b.byAddr[strings.ToLower(addr)]
		if !ok {
			log.WithField("address", addr).Warn("no discord user mapped for group member")
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    userID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: memberAllow,
		})
	}

	ch, err := b.session.GuildChannelCreateComplex(b.guildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(info.Name),
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                info.Description,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return nil, fmt.Errorf("discordx: create channel: %w", err)
	}
	return &channel{binding: b, id: ch.ID}, nil
}

func (b *Binding) FindGroup(_ context.Context, id string) (transport.Group, error) {
	ch, err := b.session.Channel(id)
	if err != nil {
		if isUnknownChannel(err) {
			return nil, transport.ErrGroupNotFound
		}
		// An outage is not a missing group; let callers tell them apart.
		return nil, fmt.Errorf("discordx: fetch channel %s: %w", id, err)
	}
	if ch == nil || ch.GuildID != b.guildID {
		return nil, transport.ErrGroupNotFound
	}
	return &channel{binding: b, id: ch.ID}, nil
}

// isUnknownChannel reports whether the API rejected the channel id itself.
func isUnknownChannel(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}

type channel struct {
	binding *Binding
	id      string
}

func (c *channel) ID() string { return c.id }

func (c *channel) Members(_ context.Context) ([]transport.Member, error) {
	ch, err := c.binding.session.Channel(c.id)
	if err != nil {
		return nil, fmt.Errorf("discordx: fetch channel: %w", err)
	}
	var members []transport.Member
	for _, ov := range ch.PermissionOverwrites {
		if ov.Type != discordgo.PermissionOverwriteTypeMember {
			continue
		}
		m := transport.Member{ID: ov.ID}
		if addr, ok := c.binding.byUser[ov.ID]; ok {
			m.Addresses = []string{addr}
		}
		members = append(members, m)
	}
	return members, nil
}

func (c *channel) PromoteAdmin(_ context.Context, memberID string) error {
	err := c.binding.session.ChannelPermissionSet(c.id, memberID, discordgo.PermissionOverwriteTypeMember, adminAllow, 0)
	if err != nil {
		return fmt.Errorf("discordx: grant admin: %w", err)
	}
	return nil
}

func (c *channel) Send(_ context.Context, text string) error {
	if _, err := c.binding.session.ChannelMessageSend(c.id, text); err != nil {
		return fmt.Errorf("discordx: send message: %w", err)
	}
	return nil
}

// channelName squeezes a group name into Discord's channel naming rules.
func channelName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		name = "segugio"
	}
	if len(name) > 100 {
		name = name[:100]
	}
	return name
}
