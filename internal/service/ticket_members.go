package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// MemberInput targets another member of the guild.
type MemberInput struct {
	ActionInput
	TargetID string
}

// AddMember grants a member access to the ticket channel.
func (s *TicketService) AddMember(ctx context.Context, in MemberInput) (*domain.Ticket, error) {
	ticket, err := s.managedTicket(ctx, in.ActionInput)
	if err != nil {
		return nil, err
	}
	if in.TargetID == "" {
		return nil, apperrors.NewValidationError("mention the member to add", nil)
	}
	if in.TargetID == ticket.UserID {
		return nil, apperrors.NewConflict("the ticket owner is already in this ticket", nil)
	}

	err = s.platform.SetPermission(ctx, ticket.ChannelID, platform.Overwrite{
		ID:    in.TargetID,
		Type:  platform.OverwriteMember,
		Allow: participantPermissions,
	})
	if err != nil {
		return nil, s.internal("add ticket member", err)
	}
	s.publishEvent(ctx, ticket, events.EventTicketMemberAdded, in.Actor.UserID, events.TicketMemberPayload{MemberID: in.TargetID})
	return ticket, nil
}

// RemoveMember revokes a member's channel overwrite. The opener and the
// claimer cannot be removed.
func (s *TicketService) RemoveMember(ctx context.Context, in MemberInput) (*domain.Ticket, error) {
	ticket, err := s.managedTicket(ctx, in.ActionInput)
	if err != nil {
		return nil, err
	}
	if in.TargetID == "" {
		return nil, apperrors.NewValidationError("mention the member to remove", nil)
	}
	if in.TargetID == ticket.UserID {
		return nil, apperrors.NewForbidden("the ticket owner cannot be removed")
	}
	if ticket.IsClaimedBy(in.TargetID) {
		return nil, apperrors.NewForbidden("the claimer cannot be removed, unclaim first")
	}

	if err := s.platform.RemovePermission(ctx, ticket.ChannelID, in.TargetID); err != nil && !platform.IsNotFound(err) {
		return nil, s.internal("remove ticket member", err)
	}
	s.publishEvent(ctx, ticket, events.EventTicketMemberRemoved, in.Actor.UserID, events.TicketMemberPayload{MemberID: in.TargetID})
	return ticket, nil
}

// Rename renames the ticket channel.
func (s *TicketService) Rename(ctx context.Context, in ActionInput, name string) (*domain.Ticket, error) {
	ticket, err := s.managedTicket(ctx, in)
	if err != nil {
		return nil, err
	}
	channelName := ChannelName(name)
	if channelName == "" {
		return nil, apperrors.NewValidationError("the new name must contain letters or digits", nil)
	}

	if err := s.platform.RenameChannel(ctx, ticket.ChannelID, channelName); err != nil {
		return nil, s.internal("rename ticket channel", err)
	}
	s.publishEvent(ctx, ticket, events.EventTicketRenamed, in.Actor.UserID, events.TicketRenamedPayload{Name: channelName})
	return ticket, nil
}

// SubmitDescription stores the opener's description once.
func (s *TicketService) SubmitDescription(ctx context.Context, in ActionInput, text string) (*domain.Ticket, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if ticket.UserID != in.Actor.UserID {
		return nil, apperrors.NewForbidden("only the ticket owner can submit the description")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("the description cannot be empty", nil)
	}
	if r := []rune(text); len(r) > maxDescriptionLength {
		text = string(r[:maxDescriptionLength])
	}

	submitted, err := s.tickets.CompareAndSwap(ctx,
		repository.TicketFilter{ChannelID: &ticket.ChannelID, Open: boolPtr(true), DescriptionSubmitted: boolPtr(false)},
		repository.TicketPatch{DescriptionSubmitted: boolPtr(true), DescriptionText: &text})
	if err != nil {
		return nil, s.internal("store description", err)
	}
	if !submitted {
		s.metrics.RecordConflict("description")
		return nil, apperrors.NewConflict("the description was already submitted", nil)
	}
	ticket.DescriptionSubmitted = true
	ticket.DescriptionText = text

	if _, err := s.platform.SendMessage(ctx, ticket.ChannelID, platform.MessageSend{
		Content: "**Description from " + mention(ticket.UserID) + "**\n" + text,
	}); err != nil {
		s.logger.Warn("post description failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
	if ticket.DescriptionPromptMessageID != "" {
		err := s.platform.EditMessage(ctx, ticket.ChannelID, ticket.DescriptionPromptMessageID, platform.MessageSend{
			Content: "Description submitted.",
			Buttons: []platform.Button{{CustomID: ButtonDescription, Label: "Submit description", Style: platform.ButtonPrimary, Disabled: true}},
		})
		if err != nil {
			s.logger.Warn("disable description prompt failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}
	s.publishEvent(ctx, ticket, events.EventTicketDescriptionSubmitted, in.Actor.UserID, nil)
	return ticket, nil
}

// managedTicket loads the open ticket and checks that the actor may manage
// its members: the claimer, staff of the ticket type, or a staff-like member.
func (s *TicketService) managedTicket(ctx context.Context, in ActionInput) (*domain.Ticket, error) {
	ticket, err := s.openTicket(ctx, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if !s.canManage(ticket, in.Actor) {
		return nil, apperrors.NewForbidden("you are not allowed to manage this ticket")
	}
	return ticket, nil
}

func (s *TicketService) canManage(ticket *domain.Ticket, actor auth.Member) bool {
	if ticket.UserID == actor.UserID {
		return false
	}
	settings := s.guilds.Lookup(ticket.GuildID)
	return ticket.IsClaimedBy(actor.UserID) ||
		s.isStaffFor(settings, ticket.Type, actor) ||
		s.gate.IsStaffLike(actor)
}
