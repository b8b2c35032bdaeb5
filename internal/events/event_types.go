package events

import (
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened               EventType = "ticket_opened"
	EventTicketClaimed              EventType = "ticket_claimed"
	EventTicketUnclaimed            EventType = "ticket_unclaimed"
	EventTicketCloseRequested       EventType = "ticket_close_requested"
	EventTicketCloseRejected        EventType = "ticket_close_rejected"
	EventTicketClosed               EventType = "ticket_closed"
	EventTicketDescriptionSubmitted EventType = "ticket_description_submitted"
	EventTicketMemberAdded          EventType = "ticket_member_added"
	EventTicketMemberRemoved        EventType = "ticket_member_removed"
	EventTicketRenamed              EventType = "ticket_renamed"
)

// Event represents a ticket lifecycle transition emitted by services.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	TicketID   string            `json:"ticket_id"`
	GuildID    string            `json:"guild_id"`
	ChannelID  string            `json:"channel_id"`
	TicketType domain.TicketType `json:"ticket_type"`
	ActorID    string            `json:"actor_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Payload    interface{}       `json:"payload,omitempty"`
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	OpenerID   string `json:"opener_id"`
	CategoryID string `json:"category_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	Reason         string `json:"reason,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	ViaRequest     bool   `json:"via_request"`
}

// TicketCloseRequestedPayload payload.
type TicketCloseRequestedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// TicketMemberPayload payload for add/remove.
type TicketMemberPayload struct {
	MemberID string `json:"member_id"`
}

// TicketRenamedPayload payload.
type TicketRenamedPayload struct {
	Name string `json:"name"`
}
