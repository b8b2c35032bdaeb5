package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/bot"
)

// Intents needed for buttons, modals and text commands.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

// NewSession creates a bot session with the intents set. It is not opened.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = Intents
	return session, nil
}

// EventRouter receives converted gateway events.
type EventRouter interface {
	HandleInteraction(ctx context.Context, in bot.Interaction, resp bot.Responder) error
	HandleMessage(ctx context.Context, msg bot.Message) error
}

// Handler bridges gateway events to an EventRouter.
type Handler struct {
	router  EventRouter
	logger  *zap.Logger
	timeout time.Duration
}

// NewHandler builds a handler. Each event gets at most timeout to complete.
func NewHandler(router EventRouter, logger *zap.Logger, timeout time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{router: router, logger: logger, timeout: timeout}
}

// Register adds the handlers to session and returns a func removing them.
func (h *Handler) Register(session *discordgo.Session) func() {
	removeInteraction := session.AddHandler(h.onInteraction)
	removeMessage := session.AddHandler(h.onMessage)
	return func() {
		removeInteraction()
		removeMessage()
	}
}

func (h *Handler) onInteraction(s *discordgo.Session, ev *discordgo.InteractionCreate) {
	in, ok := toInteraction(ev.Interaction)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.router.HandleInteraction(ctx, in, &responder{session: s, interaction: ev.Interaction}); err != nil {
		h.logger.Warn("interaction not answered",
			zap.String("custom_id", in.CustomID),
			zap.String("channel_id", in.ChannelID),
			zap.Error(err))
	}
}

func (h *Handler) onMessage(s *discordgo.Session, ev *discordgo.MessageCreate) {
	msg, ok := toMessage(ev.Message)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	perms, err := s.UserChannelPermissions(msg.Member.UserID, msg.ChannelID, discordgo.WithContext(ctx))
	if err != nil {
		h.logger.Debug("resolve member permissions", zap.String("user_id", msg.Member.UserID), zap.Error(err))
	}
	msg.Member.Permissions = perms

	if err := h.router.HandleMessage(ctx, msg); err != nil {
		h.logger.Warn("command not answered",
			zap.String("channel_id", msg.ChannelID),
			zap.Error(err))
	}
}

// toInteraction converts button clicks and modal submissions from a guild.
func toInteraction(i *discordgo.Interaction) (bot.Interaction, bool) {
	if i == nil || i.GuildID == "" || i.Member == nil || i.Member.User == nil {
		return bot.Interaction{}, false
	}
	out := bot.Interaction{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Member:    toMember(i.Member),
	}

	switch i.Type {
	case discordgo.InteractionMessageComponent:
		out.Kind = bot.KindButton
		out.CustomID = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		data := i.ModalSubmitData()
		out.Kind = bot.KindModal
		out.CustomID = data.CustomID
		out.Fields = modalFields(data.Components)
	default:
		return bot.Interaction{}, false
	}
	return out, true
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	for _, c := range components {
		row, ok := c.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, inner := range row.Components {
			if input, ok := inner.(*discordgo.TextInput); ok {
				fields[input.CustomID] = input.Value
			}
		}
	}
	return fields
}

func toMessage(m *discordgo.Message) (bot.Message, bool) {
	if m == nil || m.Author == nil {
		return bot.Message{}, false
	}
	out := bot.Message{
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
		Member:    auth.Member{UserID: m.Author.ID, Username: m.Author.Username},
	}
	if m.Member != nil {
		out.Member.RoleIDs = m.Member.Roles
	}
	return out, true
}

func toMember(m *discordgo.Member) auth.Member {
	return auth.Member{UserID: m.User.ID, Username: m.User.Username, RoleIDs: m.Roles, Permissions: m.Permissions}
}

// responder answers an interaction with ephemeral messages.
type responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *responder) Reply(ctx context.Context, content string) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content, Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
}

func (r *responder) Defer(ctx context.Context) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}, discordgo.WithContext(ctx))
}

func (r *responder) FollowUp(ctx context.Context, content string) error {
	_, err := r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, discordgo.WithContext(ctx))
	return err
}

func (r *responder) OpenModal(ctx context.Context, modal bot.Modal) error {
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: toModalData(modal),
	}, discordgo.WithContext(ctx))
}

func toModalData(modal bot.Modal) *discordgo.InteractionResponseData {
	rows := make([]discordgo.MessageComponent, 0, len(modal.Fields))
	for _, f := range modal.Fields {
		style := discordgo.TextInputShort
		if f.Long {
			style = discordgo.TextInputParagraph
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    f.CustomID,
				Label:       f.Label,
				Style:       style,
				Placeholder: f.Placeholder,
				Required:    f.Required,
				MaxLength:   f.MaxLength,
			},
		}})
	}
	return &discordgo.InteractionResponseData{
		CustomID:   modal.CustomID,
		Title:      modal.Title,
		Components: rows,
	}
}
