// Package bot routes chat interactions and text commands to the ticket service.
package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// TicketOperations is the part of service.TicketService the router drives.
type TicketOperations interface {
	Open(ctx context.Context, in service.OpenInput) (*service.OpenResult, error)
	Claim(ctx context.Context, in service.ActionInput) (*domain.Ticket, error)
	Unclaim(ctx context.Context, in service.ActionInput) (*domain.Ticket, error)
	RequestClose(ctx context.Context, in service.CloseInput) (*domain.Ticket, error)
	ResolveCloseRequest(ctx context.Context, in service.ActionInput, accept bool) (*service.CloseResult, error)
	Close(ctx context.Context, in service.CloseInput) (*service.CloseResult, error)
	AddMember(ctx context.Context, in service.MemberInput) (*domain.Ticket, error)
	RemoveMember(ctx context.Context, in service.MemberInput) (*domain.Ticket, error)
	Rename(ctx context.Context, in service.ActionInput, name string) (*domain.Ticket, error)
	SubmitDescription(ctx context.Context, in service.ActionInput, text string) (*domain.Ticket, error)
	History(ctx context.Context, in service.MemberInput) ([]domain.Ticket, error)
}

// InteractionKind distinguishes button clicks from modal submissions.
type InteractionKind int

const (
	KindButton InteractionKind = iota
	KindModal
)

// Interaction is a component or modal event from the platform.
type Interaction struct {
	Kind      InteractionKind
	CustomID  string
	GuildID   string
	ChannelID string
	Member    auth.Member
	// Fields holds modal text inputs by custom id.
	Fields map[string]string
}

// ModalField is a text input of a modal.
type ModalField struct {
	CustomID    string
	Label       string
	Placeholder string
	Long        bool
	Required    bool
	MaxLength   int
}

// Modal is a form shown in response to a button.
type Modal struct {
	CustomID string
	Title    string
	Fields   []ModalField
}

// Responder answers one interaction. Replies are only visible to the actor.
type Responder interface {
	Reply(ctx context.Context, content string) error
	Defer(ctx context.Context) error
	FollowUp(ctx context.Context, content string) error
	OpenModal(ctx context.Context, modal Modal) error
}

// Message is a guild text message that may carry a command.
type Message struct {
	GuildID   string
	ChannelID string
	Member    auth.Member
	AuthorBot bool
	Content   string
}

// Router dispatches interactions and text commands.
type Router struct {
	tickets  TicketOperations
	platform platform.Client
	guilds   config.Guilds
	gate     auth.Gate
	prefix   string
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	Tickets       TicketOperations
	Platform      platform.Client
	Guilds        config.Guilds
	CommandPrefix string
	Metrics       *observability.Metrics
	Logger        *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := deps.CommandPrefix
	if prefix == "" {
		prefix = "-ticket"
	}
	return &Router{
		tickets:  deps.Tickets,
		platform: deps.Platform,
		guilds:   deps.Guilds,
		prefix:   prefix,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

var closeReasonModal = Modal{
	CustomID: service.ModalCloseReason,
	Title:    "Close ticket",
	Fields: []ModalField{{
		CustomID:  service.ModalFieldReason,
		Label:     "Reason",
		Long:      true,
		Required:  true,
		MaxLength: 500,
	}},
}

var descriptionModal = Modal{
	CustomID: service.ModalDescription,
	Title:    "Partnership description",
	Fields: []ModalField{{
		CustomID:    service.ModalFieldDescription,
		Label:       "Description",
		Placeholder: "Tell us about your server or project",
		Long:        true,
		Required:    true,
		MaxLength:   1000,
	}},
}

// HandleInteraction answers a button click or modal submission. Ids that do
// not belong to the ticket system are ignored.
func (r *Router) HandleInteraction(ctx context.Context, in Interaction, resp Responder) error {
	action := service.ActionInput{GuildID: in.GuildID, ChannelID: in.ChannelID, Actor: in.Member}

	if ticketType, ok := service.TypeForButton(in.CustomID); ok && in.Kind == KindButton {
		if err := resp.Defer(ctx); err != nil {
			return err
		}
		res, err := r.tickets.Open(ctx, service.OpenInput{GuildID: in.GuildID, Actor: in.Member, Type: ticketType})
		if err != nil {
			return r.fail(ctx, resp.FollowUp, "interaction", err)
		}
		return resp.FollowUp(ctx, "Your ticket has been created: <#"+res.Channel.ID+">")
	}

	switch in.CustomID {
	case service.ButtonClaim:
		if _, err := r.tickets.Claim(ctx, action); err != nil {
			return r.fail(ctx, resp.Reply, "interaction", err)
		}
		return resp.Reply(ctx, "You claimed this ticket.")

	case service.ButtonUnclaim:
		if _, err := r.tickets.Unclaim(ctx, action); err != nil {
			return r.fail(ctx, resp.Reply, "interaction", err)
		}
		return resp.Reply(ctx, "You released this ticket.")

	case service.ButtonClose:
		action.OnClosing = r.announceClosing(resp)
		return r.closeFromInteraction(ctx, resp, service.CloseInput{ActionInput: action})

	case service.ButtonCloseWithReason:
		return resp.OpenModal(ctx, closeReasonModal)

	case service.ModalCloseReason:
		action.OnClosing = r.announceClosing(resp)
		return r.closeFromInteraction(ctx, resp, service.CloseInput{ActionInput: action, Reason: in.Fields[service.ModalFieldReason]})

	case service.ButtonAcceptClose, service.ButtonRejectClose:
		accept := in.CustomID == service.ButtonAcceptClose
		if err := resp.Defer(ctx); err != nil {
			return err
		}
		if accept {
			action.OnClosing = r.announceClosing(resp)
		}
		if _, err := r.tickets.ResolveCloseRequest(ctx, action, accept); err != nil {
			return r.fail(ctx, resp.FollowUp, "interaction", err)
		}
		if accept {
			// announced through OnClosing; the channel is gone
			return nil
		}
		return resp.FollowUp(ctx, "You rejected the close request.")

	case service.ButtonDescription:
		return resp.OpenModal(ctx, descriptionModal)

	case service.ModalDescription:
		if _, err := r.tickets.SubmitDescription(ctx, action, in.Fields[service.ModalFieldDescription]); err != nil {
			return r.fail(ctx, resp.Reply, "interaction", err)
		}
		return resp.Reply(ctx, "Thanks, your description was submitted.")
	}
	return nil
}

// announceClosing completes the deferred reply of the member whose close won.
func (r *Router) announceClosing(resp Responder) func(context.Context, time.Duration) {
	return func(ctx context.Context, deleteIn time.Duration) {
		content := fmt.Sprintf("Ticket closed. This channel will be deleted in %d seconds.", int(deleteIn.Seconds()))
		if err := resp.FollowUp(ctx, content); err != nil {
			r.logger.Warn("announce close to actor failed", zap.Error(err))
		}
	}
}

func (r *Router) closeFromInteraction(ctx context.Context, resp Responder, in service.CloseInput) error {
	if err := resp.Defer(ctx); err != nil {
		return err
	}
	if _, err := r.tickets.Close(ctx, in); err != nil {
		return r.fail(ctx, resp.FollowUp, "interaction", err)
	}
	return nil
}

// HandleMessage runs a text command. Only members with the guild's command
// role, or administrators, may use them.
func (r *Router) HandleMessage(ctx context.Context, msg Message) error {
	if msg.AuthorBot || msg.GuildID == "" {
		return nil
	}
	cmd, ok := ParseCommand(r.prefix, msg.Content)
	if !ok {
		return nil
	}
	reply := func(ctx context.Context, content string) error {
		_, err := r.platform.SendMessage(ctx, msg.ChannelID, platform.MessageSend{Content: content})
		return err
	}

	settings := r.guilds.Lookup(msg.GuildID)
	if !r.gate.IsAdmin(msg.Member) && !r.gate.HasRole(msg.Member, settings.CommandRole) {
		return reply(ctx, "You are not allowed to use ticket commands.")
	}

	action := service.ActionInput{GuildID: msg.GuildID, ChannelID: msg.ChannelID, Actor: msg.Member}
	var (
		err  error
		done string
	)
	switch cmd.Name {
	case CommandAdd, CommandRemove:
		target := MentionedUser(cmd.Args)
		if target == "" {
			return reply(ctx, fmt.Sprintf("usage: `%s %s @user`", r.prefix, cmd.Name))
		}
		in := service.MemberInput{ActionInput: action, TargetID: target}
		if cmd.Name == CommandAdd {
			_, err = r.tickets.AddMember(ctx, in)
			done = "<@" + target + "> was added to the ticket."
		} else {
			_, err = r.tickets.RemoveMember(ctx, in)
			done = "<@" + target + "> was removed from the ticket."
		}
	case CommandCloseRequest:
		_, err = r.tickets.RequestClose(ctx, service.CloseInput{ActionInput: action, Reason: cmd.Args})
	case CommandClose:
		_, err = r.tickets.Close(ctx, service.CloseInput{ActionInput: action, Reason: cmd.Args})
	case CommandClaim:
		_, err = r.tickets.Claim(ctx, action)
		done = "<@" + msg.Member.UserID + "> claimed this ticket."
	case CommandUnclaim:
		_, err = r.tickets.Unclaim(ctx, action)
		done = "<@" + msg.Member.UserID + "> released this ticket."
	case CommandRename:
		if cmd.Args == "" {
			return reply(ctx, fmt.Sprintf("usage: `%s rename <name>`", r.prefix))
		}
		_, err = r.tickets.Rename(ctx, action, cmd.Args)
		done = "Ticket renamed."
	case CommandHistory:
		target := MentionedUser(cmd.Args)
		if target == "" {
			return reply(ctx, fmt.Sprintf("usage: `%s history @user`", r.prefix))
		}
		var tickets []domain.Ticket
		tickets, err = r.tickets.History(ctx, service.MemberInput{ActionInput: action, TargetID: target})
		done = formatHistory(target, tickets)
	default:
		return reply(ctx, fmt.Sprintf(usage, r.prefix))
	}

	if err != nil {
		return r.fail(ctx, reply, "command", err)
	}
	if done == "" {
		return nil
	}
	return reply(ctx, done)
}

func formatHistory(userID string, tickets []domain.Ticket) string {
	if len(tickets) == 0 {
		return "<@" + userID + "> has no tickets."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Recent tickets of <@%s>:", userID)
	for _, t := range tickets {
		fmt.Fprintf(&b, "\n- %s <#%s> %s, opened %s", t.Type, t.ChannelID, t.State(), t.CreatedAt.Format("2006-01-02"))
		if t.CloseReason != "" {
			fmt.Fprintf(&b, " (%s)", t.CloseReason)
		}
	}
	return b.String()
}

// fail reports err to the actor. Internal failures are logged; their
// details never reach the member.
func (r *Router) fail(ctx context.Context, send func(context.Context, string) error, origin string, err error) error {
	domainErr := apperrors.ToDomainError(err)
	r.metrics.RecordError(origin, domainErr.Code)
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		r.logger.Error("ticket operation failed", zap.String("origin", origin), zap.Error(err))
	}
	return send(ctx, domainErr.Message)
}
