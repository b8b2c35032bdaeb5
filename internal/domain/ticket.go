package domain

import "time"

// TicketType enumerates the ticket categories a member can open.
type TicketType string

const (
	TicketTypeSupport     TicketType = "support"
	TicketTypePartnership TicketType = "partnership"
	TicketTypeHigh        TicketType = "high"
)

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeSupport, TicketTypePartnership, TicketTypeHigh:
		return true
	}
	return false
}

// TicketState is the derived lifecycle state of a ticket.
type TicketState string

const (
	TicketStateOpen           TicketState = "OPEN"
	TicketStateClaimed        TicketState = "CLAIMED"
	TicketStateCloseRequested TicketState = "CLOSE_REQUESTED"
	TicketStateClosed         TicketState = "CLOSED"
)

// Ticket is a per-user request backed by a dedicated channel.
// The record outlives the channel as an audit trail.
type Ticket struct {
	ID                         string
	GuildID                    string
	UserID                     string
	ChannelID                  string
	Type                       TicketType
	Open                       bool
	ClaimedBy                  *string
	CreatedAt                  time.Time
	ClosedAt                   *time.Time
	ClosedBy                   *string
	CloseReason                string
	Transcript                 string
	TranscriptPath             string
	MessageID                  string
	DescriptionPromptMessageID string
	DescriptionSubmitted       bool
	DescriptionText            string
	CloseRequestedBy           *string
	CloseRequestReason         string
}

// State derives the lifecycle state from the stored fields.
func (t *Ticket) State() TicketState {
	switch {
	case !t.Open:
		return TicketStateClosed
	case t.CloseRequestedBy != nil:
		return TicketStateCloseRequested
	case t.ClaimedBy != nil:
		return TicketStateClaimed
	default:
		return TicketStateOpen
	}
}

// IsClaimedBy reports whether userID currently holds the claim.
func (t *Ticket) IsClaimedBy(userID string) bool {
	return t.ClaimedBy != nil && *t.ClaimedBy == userID
}
