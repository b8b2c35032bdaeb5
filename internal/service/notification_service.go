package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/observability"
)

// NotificationService turns lifecycle events into an audit log and metrics.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketOpened,
		events.EventTicketClaimed,
		events.EventTicketUnclaimed,
		events.EventTicketCloseRequested,
		events.EventTicketCloseRejected,
		events.EventTicketDescriptionSubmitted,
		events.EventTicketMemberAdded,
		events.EventTicketMemberRemoved,
		events.EventTicketRenamed,
	} {
		n.dispatcher.Subscribe(eventType, n.handleTransition)
	}
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
}

func (n *NotificationService) handleTransition(_ context.Context, event events.Event) error {
	n.metrics.RecordTransition(string(event.Type), string(event.TicketType))
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.String("ticket_id", event.TicketID),
		zap.String("guild_id", event.GuildID),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.ActorID),
		zap.Any("payload", event.Payload))
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.TicketClosedPayload); ok && payload.TranscriptPath == "" {
		n.logger.Warn("ticket closed without an HTML transcript", zap.String("ticket_id", event.TicketID))
	}
	return n.handleTransition(ctx, event)
}
