package service

import (
	"context"

	"github.com/spec-kit/ticket-bot/internal/domain"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const historyLimit = 10

// History lists the most recent tickets a member opened in the guild, newest
// first. Only staff may look it up.
func (s *TicketService) History(ctx context.Context, in MemberInput) ([]domain.Ticket, error) {
	if in.TargetID == "" {
		return nil, apperrors.NewValidationError("mention the member to look up", nil)
	}
	settings := s.guilds.Lookup(in.GuildID)
	if !s.gate.IsStaffLike(in.Actor) &&
		!s.gate.HasAnyRole(in.Actor, settings.StaffRole, settings.HighStaffRole, settings.PartnerManagerRole) {
		return nil, apperrors.NewForbidden("you are not allowed to view ticket history")
	}

	tickets, err := s.tickets.ListByUser(ctx, in.GuildID, in.TargetID, historyLimit)
	if err != nil {
		return nil, s.internal("list ticket history", err)
	}
	return tickets, nil
}
