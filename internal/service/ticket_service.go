package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/lock"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// CategoryAllocator finds a category with room for one more ticket channel.
type CategoryAllocator interface {
	Acquire(ctx context.Context, guildID string) (*domain.Category, error)
}

// Archiver renders, stores and delivers the transcript of a closed ticket.
type Archiver interface {
	Archive(ctx context.Context, ticket *domain.Ticket) (*Archive, error)
}

// TicketService coordinates the ticket lifecycle: open, claim, unclaim,
// close requests and close.
type TicketService struct {
	tickets     repository.TicketRepository
	allocator   CategoryAllocator
	platform    platform.Client
	archiver    Archiver
	guilds      config.Guilds
	gate        auth.Gate
	locks       lock.Locker
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	deleteDelay time.Duration
	sleep       func(context.Context, time.Duration) error
	now         func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	Allocator   CategoryAllocator
	Platform    platform.Client
	Archiver    Archiver
	Guilds      config.Guilds
	Locks       lock.Locker
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	DeleteDelay time.Duration
	// Sleep waits before the channel of a closed ticket is deleted. Tests replace it.
	Sleep func(context.Context, time.Duration) error
	Now   func() time.Time
}

// OpenInput describes an open request.
type OpenInput struct {
	GuildID string
	Actor   auth.Member
	Type    domain.TicketType
}

// OpenResult is the created ticket and its channel.
type OpenResult struct {
	Ticket  *domain.Ticket
	Channel *platform.Channel
}

// ActionInput identifies the acting member and the ticket channel.
type ActionInput struct {
	GuildID   string
	ChannelID string
	Actor     auth.Member
	// OnClosing, if set, runs once a close is committed and before the
	// channel deletion delay starts.
	OnClosing func(ctx context.Context, deleteIn time.Duration)
}

// CloseInput is a close or close request with an optional reason.
type CloseInput struct {
	ActionInput
	Reason string
}

// CloseResult reports a completed close.
type CloseResult struct {
	Ticket  *domain.Ticket
	Archive *Archive
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:     deps.TicketRepo,
		allocator:   deps.Allocator,
		platform:    deps.Platform,
		archiver:    deps.Archiver,
		guilds:      deps.Guilds,
		locks:       deps.Locks,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		deleteDelay: deps.DeleteDelay,
		sleep:       deps.Sleep,
		now:         deps.Now,
	}
	if s.locks == nil {
		s.locks = lock.NewTable()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.sleep == nil {
		s.sleep = sleepContext
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Open creates a ticket channel for the actor. At most one open ticket per
// member and guild exists; a losing concurrent attempt reports the winner.
func (s *TicketService) Open(ctx context.Context, in OpenInput) (*OpenResult, error) {
	if !in.Type.Valid() {
		return nil, apperrors.NewValidationError("unknown ticket type", map[string]any{"type": in.Type})
	}
	settings := s.guilds.Lookup(in.GuildID)
	if !s.gate.IsAdmin(in.Actor) {
		if isBlacklisted(s.gate, settings, in.Actor, in.Type) {
			return nil, apperrors.NewForbidden("you are not allowed to open this kind of ticket")
		}
		if required := settings.RequiredRoles[in.Type]; required != "" && !s.gate.HasRole(in.Actor, required) {
			return nil, apperrors.NewForbidden("you are missing the role required to open this kind of ticket")
		}
	}

	// A concurrent open by the same member waits here and then sees the winner.
	release, err := s.locks.Acquire(ctx, lock.Key(in.GuildID, in.Actor.UserID))
	if err != nil {
		s.metrics.RecordConflict("open")
		return nil, apperrors.NewConflict("your ticket is already being created, please wait", nil)
	}
	defer release()

	existing, err := s.tickets.FindOpenByUser(ctx, in.GuildID, in.Actor.UserID)
	if err != nil {
		return nil, s.internal("find open ticket", err)
	}
	if existing != nil {
		s.metrics.RecordConflict("open")
		return nil, alreadyOpen(existing)
	}

	channel, category, err := s.placeChannel(ctx, in, settings)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:        uuid.NewString(),
		GuildID:   in.GuildID,
		UserID:    in.Actor.UserID,
		ChannelID: channel.ID,
		Type:      in.Type,
		Open:      true,
	}
	panel, err := s.platform.SendMessage(ctx, channel.ID, platform.MessageSend{
		Content: panelContent(ticket),
		Buttons: controlPanel(false),
	})
	if err != nil {
		s.discardChannel(ctx, channel.ID)
		return nil, s.internal("send control panel", err)
	}
	ticket.MessageID = panel.ID

	if in.Type == domain.TicketTypePartnership {
		prompt, err := s.platform.SendMessage(ctx, channel.ID, platform.MessageSend{
			Content: "Describe your partnership proposal with the button below.",
			Buttons: []platform.Button{{CustomID: ButtonDescription, Label: "Submit description", Style: platform.ButtonPrimary}},
		})
		if err != nil {
			s.discardChannel(ctx, channel.ID)
			return nil, s.internal("send description prompt", err)
		}
		ticket.DescriptionPromptMessageID = prompt.ID
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.discardChannel(ctx, channel.ID)
		if errors.Is(err, repository.ErrDuplicate) {
			s.metrics.RecordConflict("open")
			winner, findErr := s.tickets.FindOpenByUser(ctx, in.GuildID, in.Actor.UserID)
			if findErr == nil && winner != nil {
				return nil, alreadyOpen(winner)
			}
			return nil, apperrors.NewConflict("you already have an open ticket", nil)
		}
		return nil, s.internal("store ticket", err)
	}

	s.logger.Info("ticket opened",
		zap.String("ticket_id", ticket.ID),
		zap.String("guild_id", ticket.GuildID),
		zap.String("channel_id", ticket.ChannelID),
		zap.String("type", string(ticket.Type)))
	s.publishEvent(ctx, ticket, events.EventTicketOpened, in.Actor.UserID, events.TicketOpenedPayload{
		OpenerID:   ticket.UserID,
		CategoryID: category.ID,
	})
	return &OpenResult{Ticket: ticket, Channel: channel}, nil
}

// Claim assigns the ticket to the acting staff member. Concurrent claims
// resolve to exactly one winner; the others learn who claimed it.
func (s *TicketService) Claim(ctx context.Context, in ActionInput) (*domain.Ticket, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	actor := in.Actor.UserID
	if ticket.UserID == actor {
		return nil, apperrors.NewForbidden("you cannot claim your own ticket")
	}
	settings := s.guilds.Lookup(ticket.GuildID)
	if !s.isStaffFor(settings, ticket.Type, in.Actor) {
		return nil, apperrors.NewForbidden("you are not allowed to claim this ticket")
	}
	if ticket.ClaimedBy != nil {
		return nil, alreadyClaimed(*ticket.ClaimedBy)
	}

	claimed, err := s.tickets.CompareAndSwap(ctx,
		repository.TicketFilter{ChannelID: &ticket.ChannelID, Open: boolPtr(true), Unclaimed: true},
		repository.TicketPatch{ClaimedBy: &actor})
	if err != nil {
		return nil, s.internal("claim ticket", err)
	}
	if !claimed {
		s.metrics.RecordConflict("claim")
		return nil, s.claimConflict(ctx, ticket.ChannelID)
	}
	ticket.ClaimedBy = &actor

	for _, ow := range claimedRoleOverwrites(settings, ticket.Type, true) {
		s.setPermission(ctx, ticket.ChannelID, ow)
	}
	s.setPermission(ctx, ticket.ChannelID, platform.Overwrite{ID: actor, Type: platform.OverwriteMember, Allow: participantPermissions})
	s.setPermission(ctx, ticket.ChannelID, platform.Overwrite{ID: ticket.UserID, Type: platform.OverwriteMember, Allow: openerPermissions})
	s.refreshPanel(ctx, ticket)

	s.publishEvent(ctx, ticket, events.EventTicketClaimed, actor, nil)
	return ticket, nil
}

// Unclaim releases a claim. Only the current claimer may do it.
func (s *TicketService) Unclaim(ctx context.Context, in ActionInput) (*domain.Ticket, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	actor := in.Actor.UserID
	if ticket.ClaimedBy == nil {
		return nil, apperrors.NewConflict("this ticket is not claimed", nil)
	}
	if !ticket.IsClaimedBy(actor) {
		return nil, apperrors.NewForbidden("only the staff member who claimed this ticket can unclaim it")
	}

	released, err := s.tickets.CompareAndSwap(ctx,
		repository.TicketFilter{ChannelID: &ticket.ChannelID, Open: boolPtr(true), ClaimedBy: &actor},
		repository.TicketPatch{ClearClaim: true, ClearCloseRequest: true})
	if err != nil {
		return nil, s.internal("unclaim ticket", err)
	}
	if !released {
		s.metrics.RecordConflict("unclaim")
		return nil, apperrors.NewConflict("this ticket is no longer claimed by you", nil)
	}
	ticket.ClaimedBy = nil
	ticket.CloseRequestedBy = nil
	ticket.CloseRequestReason = ""

	settings := s.guilds.Lookup(ticket.GuildID)
	for _, ow := range claimedRoleOverwrites(settings, ticket.Type, false) {
		s.setPermission(ctx, ticket.ChannelID, ow)
	}
	if err := s.platform.RemovePermission(ctx, ticket.ChannelID, actor); err != nil {
		s.logger.Warn("remove claimer overwrite failed", zap.String("channel_id", ticket.ChannelID), zap.Error(err))
	}
	s.refreshPanel(ctx, ticket)

	s.publishEvent(ctx, ticket, events.EventTicketUnclaimed, actor, nil)
	return ticket, nil
}

// RequestClose asks the opener to confirm closing. Only the claimer may ask.
func (s *TicketService) RequestClose(ctx context.Context, in CloseInput) (*domain.Ticket, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	actor := in.Actor.UserID
	if ticket.UserID == actor {
		return nil, apperrors.NewForbidden("you cannot request to close your own ticket")
	}
	if !ticket.IsClaimedBy(actor) {
		return nil, apperrors.NewForbidden("only the staff member who claimed this ticket can request to close it")
	}
	if ticket.CloseRequestedBy != nil {
		return nil, apperrors.NewConflict("a close request is already pending", nil)
	}

	reason := in.Reason
	requested, err := s.tickets.CompareAndSwap(ctx,
		repository.TicketFilter{ChannelID: &ticket.ChannelID, Open: boolPtr(true), ClaimedBy: &actor, NoCloseRequest: true},
		repository.TicketPatch{CloseRequestedBy: &actor, CloseRequestReason: &reason})
	if err != nil {
		return nil, s.internal("request close", err)
	}
	if !requested {
		s.metrics.RecordConflict("close_request")
		return nil, apperrors.NewConflict("this ticket can no longer be closed by request", nil)
	}
	ticket.CloseRequestedBy = &actor
	ticket.CloseRequestReason = reason

	content := fmt.Sprintf("%s, %s asked to close this ticket.", mention(ticket.UserID), mention(actor))
	if reason != "" {
		content += "\nReason: " + reason
	}
	_, err = s.platform.SendMessage(ctx, ticket.ChannelID, platform.MessageSend{
		Content: content,
		Buttons: []platform.Button{
			{CustomID: ButtonAcceptClose, Label: "Accept", Style: platform.ButtonSuccess},
			{CustomID: ButtonRejectClose, Label: "Reject", Style: platform.ButtonDanger},
		},
	})
	if err != nil {
		if _, clearErr := s.tickets.CompareAndSwap(ctx,
			repository.TicketFilter{ChannelID: &ticket.ChannelID, CloseRequestedBy: &actor},
			repository.TicketPatch{ClearCloseRequest: true}); clearErr != nil {
			s.logger.Error("clear close request failed", zap.String("ticket_id", ticket.ID), zap.Error(clearErr))
		}
		return nil, s.internal("send close request", err)
	}

	s.publishEvent(ctx, ticket, events.EventTicketCloseRequested, actor, events.TicketCloseRequestedPayload{Reason: reason})
	return ticket, nil
}

// ResolveCloseRequest answers a pending close request. Accept closes the
// ticket on behalf of the requester with the stored reason; reject clears
// the request and leaves the ticket open. Only the opener may answer.
func (s *TicketService) ResolveCloseRequest(ctx context.Context, in ActionInput, accept bool) (*CloseResult, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != in.Actor.UserID {
		return nil, apperrors.NewForbidden("only the ticket owner can answer a close request")
	}
	if ticket.CloseRequestedBy == nil {
		return nil, apperrors.NewConflict("there is no pending close request", nil)
	}
	requester := *ticket.CloseRequestedBy

	if accept {
		if !ticket.IsClaimedBy(requester) {
			return nil, apperrors.NewConflict("this close request is no longer valid", nil)
		}
		return s.close(ctx, ticket, requester, ticket.CloseRequestReason, true, in.OnClosing)
	}

	cleared, err := s.tickets.CompareAndSwap(ctx,
		repository.TicketFilter{ChannelID: &ticket.ChannelID, Open: boolPtr(true), CloseRequestedBy: &requester},
		repository.TicketPatch{ClearCloseRequest: true})
	if err != nil {
		return nil, s.internal("reject close request", err)
	}
	if !cleared {
		s.metrics.RecordConflict("close_request")
		return nil, apperrors.NewConflict("this close request was already answered", nil)
	}
	ticket.CloseRequestedBy = nil
	ticket.CloseRequestReason = ""

	if _, err := s.platform.SendMessage(ctx, ticket.ChannelID, platform.MessageSend{
		Content: fmt.Sprintf("%s, the close request was rejected.", mention(requester)),
	}); err != nil {
		s.logger.Warn("announce rejected close request failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	s.publishEvent(ctx, ticket, events.EventTicketCloseRejected, in.Actor.UserID, nil)
	return &CloseResult{Ticket: ticket}, nil
}

// Close closes the ticket directly. The actor must be the claimer and not the
// opener. Concurrent closes run archival and channel deletion exactly once.
func (s *TicketService) Close(ctx context.Context, in CloseInput) (*CloseResult, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID == in.Actor.UserID {
		return nil, apperrors.NewForbidden("you cannot close your own ticket")
	}
	if !ticket.IsClaimedBy(in.Actor.UserID) {
		return nil, apperrors.NewForbidden("only the staff member who claimed this ticket can close it")
	}
	return s.close(ctx, ticket, in.Actor.UserID, in.Reason, false, in.OnClosing)
}

// close commits the close only while closerID still holds the claim, and for
// an accepted request only while that request is still pending.
func (s *TicketService) close(ctx context.Context, ticket *domain.Ticket, closerID, reason string, viaRequest bool, onClosing func(context.Context, time.Duration)) (*CloseResult, error) {
	release, ok := s.locks.TryAcquire(lock.Key(ticket.GuildID, ticket.ChannelID))
	if !ok {
		s.metrics.RecordConflict("close")
		return nil, alreadyClosing()
	}
	defer release()

	closedAt := s.now()
	filter := repository.TicketFilter{ID: &ticket.ID, Open: boolPtr(true), ClaimedBy: &closerID}
	if viaRequest {
		filter.CloseRequestedBy = &closerID
	}
	closed, err := s.tickets.CompareAndSwap(ctx, filter,
		repository.TicketPatch{
			Open:        boolPtr(false),
			ClosedAt:    &closedAt,
			ClosedBy:    &closerID,
			CloseReason: &reason,
		})
	if err != nil {
		return nil, s.internal("close ticket", err)
	}
	if !closed {
		s.metrics.RecordConflict("close")
		return nil, s.closeConflict(ctx, ticket.ID, viaRequest)
	}
	// The ticket is committed as closed; cleanup must not stop with the caller.
	ctx = context.WithoutCancel(ctx)

	if stored, err := s.tickets.GetByID(ctx, ticket.ID); err == nil {
		ticket = stored
	} else {
		ticket.Open = false
		ticket.ClosedAt = &closedAt
		ticket.ClosedBy = &closerID
		ticket.CloseReason = reason
	}
	s.logger.Info("ticket closed",
		zap.String("ticket_id", ticket.ID),
		zap.String("channel_id", ticket.ChannelID),
		zap.String("closed_by", closerID),
		zap.Bool("via_request", viaRequest))

	result := &CloseResult{Ticket: ticket}
	if s.archiver != nil {
		archive, err := s.archiver.Archive(ctx, ticket)
		if err != nil {
			s.logger.Error("archive transcript failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
			s.metrics.RecordDegraded("archive")
		}
		result.Archive = archive
	}

	if onClosing != nil {
		onClosing(ctx, s.deleteDelay)
	}
	if _, err := s.platform.SendMessage(ctx, ticket.ChannelID, platform.MessageSend{
		Content: fmt.Sprintf("Ticket closed by %s. This channel will be deleted in %d seconds.",
			mention(closerID), int(s.deleteDelay.Seconds())),
	}); err != nil {
		s.logger.Warn("announce deletion failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	if err := s.sleep(ctx, s.deleteDelay); err != nil {
		s.logger.Warn("delete delay interrupted", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	if err := s.platform.DeleteChannel(ctx, ticket.ChannelID); err != nil && !platform.IsNotFound(err) {
		s.logger.Error("delete ticket channel failed", zap.String("channel_id", ticket.ChannelID), zap.Error(err))
	}

	payload := events.TicketClosedPayload{Reason: reason, ViaRequest: viaRequest}
	if result.Archive != nil {
		payload.TranscriptPath = result.Archive.Path
	}
	s.publishEvent(ctx, ticket, events.EventTicketClosed, closerID, payload)
	return result, nil
}

// placeChannel picks a category and creates the ticket channel in it. The
// per-guild allocation guard is held across both steps so concurrent opens
// never fill a category past its capacity.
func (s *TicketService) placeChannel(ctx context.Context, in OpenInput, settings config.GuildSettings) (*platform.Channel, *domain.Category, error) {
	release, err := s.locks.Acquire(ctx, lock.Key("alloc", in.GuildID))
	if err != nil {
		return nil, nil, s.internal("wait for category allocation", err)
	}
	defer release()

	category, err := s.allocator.Acquire(ctx, in.GuildID)
	if err != nil {
		s.logger.Error("no category for ticket", zap.String("guild_id", in.GuildID), zap.Error(err))
		return nil, nil, apperrors.NewDomainError(apperrors.CodeInternal,
			"no ticket category is available right now, please try again later", http.StatusServiceUnavailable, nil)
	}

	channel, err := s.platform.CreateTextChannel(ctx, in.GuildID, category.ID,
		ticketChannelName(in.Type, in.Actor),
		channelOverwrites(in.GuildID, in.Actor.UserID, settings, in.Type))
	if err != nil {
		return nil, nil, s.internal("create ticket channel", err)
	}
	return channel, category, nil
}

// openTicket loads the open ticket behind a channel.
func (s *TicketService) openTicket(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewConflict("there is no open ticket in this channel", map[string]any{"channel_id": channelID})
		}
		return nil, s.internal("load ticket", err)
	}
	if !ticket.Open {
		return nil, alreadyClosing()
	}
	return ticket, nil
}

func (s *TicketService) claimConflict(ctx context.Context, channelID string) error {
	current, err := s.tickets.GetByChannel(ctx, channelID)
	if err != nil {
		return s.internal("reload ticket", err)
	}
	if !current.Open {
		return alreadyClosing()
	}
	if current.ClaimedBy != nil {
		return alreadyClaimed(*current.ClaimedBy)
	}
	return apperrors.NewConflict("this ticket changed while claiming, please try again", nil)
}

// closeConflict explains a close that lost its conditional update.
func (s *TicketService) closeConflict(ctx context.Context, ticketID string, viaRequest bool) error {
	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return s.internal("reload ticket", err)
	}
	switch {
	case !current.Open:
		return alreadyClosing()
	case viaRequest:
		return apperrors.NewConflict("this close request is no longer valid", nil)
	default:
		return apperrors.NewConflict("this ticket is no longer claimed by you", nil)
	}
}

func (s *TicketService) isStaffFor(settings config.GuildSettings, ticketType domain.TicketType, actor auth.Member) bool {
	return s.gate.IsAdmin(actor) || s.gate.HasAnyRole(actor, staffRoles(settings, ticketType)...)
}

func (s *TicketService) refreshPanel(ctx context.Context, ticket *domain.Ticket) {
	if ticket.MessageID == "" {
		return
	}
	err := s.platform.EditMessage(ctx, ticket.ChannelID, ticket.MessageID, platform.MessageSend{
		Content: panelContent(ticket),
		Buttons: controlPanel(ticket.ClaimedBy != nil),
	})
	if err != nil {
		s.logger.Warn("update control panel failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

func (s *TicketService) setPermission(ctx context.Context, channelID string, ow platform.Overwrite) {
	if err := s.platform.SetPermission(ctx, channelID, ow); err != nil {
		s.logger.Warn("set channel permission failed",
			zap.String("channel_id", channelID),
			zap.String("target_id", ow.ID),
			zap.Error(err))
	}
}

// discardChannel removes a channel that has no stored ticket.
func (s *TicketService) discardChannel(ctx context.Context, channelID string) {
	if err := s.platform.DeleteChannel(ctx, channelID); err != nil && !platform.IsNotFound(err) {
		s.logger.Error("delete orphan channel failed", zap.String("channel_id", channelID), zap.Error(err))
	}
}

func (s *TicketService) internal(op string, err error) error {
	s.logger.Error(op+" failed", zap.Error(err))
	return apperrors.NewInternalError(fmt.Errorf("%s: %w", op, err))
}

func (s *TicketService) publishEvent(ctx context.Context, ticket *domain.Ticket, eventType events.EventType, actorID string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketID:   ticket.ID,
		GuildID:    ticket.GuildID,
		ChannelID:  ticket.ChannelID,
		TicketType: ticket.Type,
		ActorID:    actorID,
		Timestamp:  s.now(),
		Payload:    payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func alreadyOpen(existing *domain.Ticket) error {
	return apperrors.NewConflict("you already have an open ticket: "+channelMention(existing.ChannelID),
		map[string]any{"channel_id": existing.ChannelID, "ticket_id": existing.ID})
}

func alreadyClaimed(claimerID string) error {
	return apperrors.NewConflict("this ticket was already claimed by "+mention(claimerID),
		map[string]any{"claimed_by": claimerID})
}

func alreadyClosing() error {
	return apperrors.NewConflict("this ticket is already closing or closed", map[string]any{"reason": "closing"})
}

func boolPtr(v bool) *bool { return &v }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
