package repository

import (
	"errors"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

var (
	// ErrNotFound is returned when no ticket matches a lookup.
	ErrNotFound = errors.New("ticket not found")
	// ErrDuplicate is returned when an insert violates channel uniqueness or
	// the one-open-ticket-per-user constraint.
	ErrDuplicate = errors.New("ticket already exists")
	// ErrUnboundedFilter guards against conditional writes that do not target a single ticket.
	ErrUnboundedFilter = errors.New("conditional update requires a ticket id or channel id")
	// ErrEmptyPatch is returned for a conditional write that changes nothing.
	ErrEmptyPatch = errors.New("conditional update without changes")
)

// TicketFilter is the predicate of a conditional update. Nil fields are not checked.
type TicketFilter struct {
	ID                   *string
	ChannelID            *string
	Open                 *bool
	ClaimedBy            *string
	Unclaimed            bool
	CloseRequestedBy     *string
	NoCloseRequest       bool
	DescriptionSubmitted *bool
}

// TicketPatch lists the columns a conditional update writes. Nil fields are left untouched.
type TicketPatch struct {
	ClaimedBy                  *string
	ClearClaim                 bool
	Open                       *bool
	ClosedAt                   *time.Time
	ClosedBy                   *string
	CloseReason                *string
	Transcript                 *string
	TranscriptPath             *string
	MessageID                  *string
	DescriptionPromptMessageID *string
	DescriptionSubmitted       *bool
	DescriptionText            *string
	CloseRequestedBy           *string
	CloseRequestReason         *string
	ClearCloseRequest          bool
}

func (f TicketFilter) validate() error {
	if f.ID == nil && f.ChannelID == nil {
		return ErrUnboundedFilter
	}
	return nil
}

func (p TicketPatch) empty() bool {
	return p.ClaimedBy == nil && !p.ClearClaim && p.Open == nil && p.ClosedAt == nil &&
		p.ClosedBy == nil && p.CloseReason == nil && p.Transcript == nil &&
		p.TranscriptPath == nil && p.MessageID == nil && p.DescriptionPromptMessageID == nil &&
		p.DescriptionSubmitted == nil && p.DescriptionText == nil &&
		p.CloseRequestedBy == nil && p.CloseRequestReason == nil && !p.ClearCloseRequest
}

func (f TicketFilter) matches(t *domain.Ticket) bool {
	if f.ID != nil && t.ID != *f.ID {
		return false
	}
	if f.ChannelID != nil && t.ChannelID != *f.ChannelID {
		return false
	}
	if f.Open != nil && t.Open != *f.Open {
		return false
	}
	if f.ClaimedBy != nil && !t.IsClaimedBy(*f.ClaimedBy) {
		return false
	}
	if f.Unclaimed && t.ClaimedBy != nil {
		return false
	}
	if f.CloseRequestedBy != nil && (t.CloseRequestedBy == nil || *t.CloseRequestedBy != *f.CloseRequestedBy) {
		return false
	}
	if f.NoCloseRequest && t.CloseRequestedBy != nil {
		return false
	}
	if f.DescriptionSubmitted != nil && t.DescriptionSubmitted != *f.DescriptionSubmitted {
		return false
	}
	return true
}

func (p TicketPatch) apply(t *domain.Ticket) {
	if p.ClearClaim {
		t.ClaimedBy = nil
	}
	if p.ClaimedBy != nil {
		t.ClaimedBy = cloneString(p.ClaimedBy)
	}
	if p.Open != nil {
		t.Open = *p.Open
	}
	if p.ClosedAt != nil {
		at := *p.ClosedAt
		t.ClosedAt = &at
	}
	if p.ClosedBy != nil {
		t.ClosedBy = cloneString(p.ClosedBy)
	}
	if p.CloseReason != nil {
		t.CloseReason = *p.CloseReason
	}
	if p.Transcript != nil {
		t.Transcript = *p.Transcript
	}
	if p.TranscriptPath != nil {
		t.TranscriptPath = *p.TranscriptPath
	}
	if p.MessageID != nil {
		t.MessageID = *p.MessageID
	}
	if p.DescriptionPromptMessageID != nil {
		t.DescriptionPromptMessageID = *p.DescriptionPromptMessageID
	}
	if p.DescriptionSubmitted != nil {
		t.DescriptionSubmitted = *p.DescriptionSubmitted
	}
	if p.DescriptionText != nil {
		t.DescriptionText = *p.DescriptionText
	}
	if p.ClearCloseRequest {
		t.CloseRequestedBy = nil
		t.CloseRequestReason = ""
	}
	if p.CloseRequestedBy != nil {
		t.CloseRequestedBy = cloneString(p.CloseRequestedBy)
	}
	if p.CloseRequestReason != nil {
		t.CloseRequestReason = *p.CloseRequestReason
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	c := *t
	c.ClaimedBy = cloneString(t.ClaimedBy)
	c.ClosedBy = cloneString(t.ClosedBy)
	c.CloseRequestedBy = cloneString(t.CloseRequestedBy)
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		c.ClosedAt = &at
	}
	return &c
}
