// Package discord adapts a discordgo session to the platform client and
// feeds gateway events to the bot router.
package discord

import (
	"context"
	"sort"

	"github.com/bwmarrin/discordgo"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// Client implements platform.Client over the REST API.
type Client struct {
	session *discordgo.Session
}

var _ platform.Client = (*Client)(nil)

// NewClient wraps an open or unopened session.
func NewClient(session *discordgo.Session) *Client {
	return &Client{session: session}
}

// Categories lists the guild's categories with the number of channels under each.
func (c *Client) Categories(ctx context.Context, guildID string) ([]domain.Category, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("Categories", err)
	}

	children := make(map[string]int)
	for _, ch := range channels {
		if ch.ParentID != "" {
			children[ch.ParentID]++
		}
	}

	var out []domain.Category
	for _, ch := range channels {
		if ch.Type != discordgo.ChannelTypeGuildCategory {
			continue
		}
		out = append(out, domain.Category{
			ID:       ch.ID,
			Name:     ch.Name,
			Position: ch.Position,
			Children: children[ch.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, guildID, name string, overwrites []platform.Overwrite) (*domain.Category, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildCategory,
		PermissionOverwrites: toOverwrites(overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("CreateCategory", err)
	}
	return &domain.Category{ID: ch.ID, Name: ch.Name, Position: ch.Position}, nil
}

func (c *Client) CreateTextChannel(ctx context.Context, guildID, parentID, name string, overwrites []platform.Overwrite) (*platform.Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: toOverwrites(overwrites),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("CreateTextChannel", err)
	}
	return fromChannel(ch), nil
}

func (c *Client) RenameChannel(ctx context.Context, channelID, name string) error {
	_, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	return wrap("RenameChannel", err)
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return wrap("DeleteChannel", err)
}

func (c *Client) SetPermission(ctx context.Context, channelID string, overwrite platform.Overwrite) error {
	o := toOverwrite(overwrite)
	err := c.session.ChannelPermissionSet(channelID, o.ID, o.Type, o.Allow, o.Deny, discordgo.WithContext(ctx))
	return wrap("SetPermission", err)
}

func (c *Client) RemovePermission(ctx context.Context, channelID, targetID string) error {
	return wrap("RemovePermission", c.session.ChannelPermissionDelete(channelID, targetID, discordgo.WithContext(ctx)))
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg platform.MessageSend) (*platform.Message, error) {
	m, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("SendMessage", err)
	}
	return fromMessage(m), nil
}

// EditMessage replaces content and buttons. Attachments are left untouched.
func (c *Client) EditMessage(ctx context.Context, channelID, messageID string, msg platform.MessageSend) error {
	content := msg.Content
	components := toComponents(msg.Buttons)
	_, err := c.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         messageID,
		Channel:    channelID,
		Content:    &content,
		Components: &components,
	}, discordgo.WithContext(ctx))
	return wrap("EditMessage", err)
}

func (c *Client) SendDirect(ctx context.Context, userID string, msg platform.MessageSend) (*platform.Message, error) {
	dm, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("SendDirect", err)
	}
	m, err := c.session.ChannelMessageSendComplex(dm.ID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("SendDirect", err)
	}
	return fromMessage(m), nil
}

// ChannelMessages fetches one page. The API caps a page at 100 messages.
func (c *Client) ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]platform.Message, error) {
	msgs, err := c.session.ChannelMessages(channelID, min(limit, 100), beforeID, "", "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrap("ChannelMessages", err)
	}
	out := make([]platform.Message, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		out = append(out, *fromMessage(m))
	}
	return out, nil
}
