package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// memoryTicketRepository keeps tickets in process. It enforces the same
// uniqueness constraints as the postgres schema and applies conditional
// updates atomically under one mutex.
type memoryTicketRepository struct {
	mu      sync.Mutex
	tickets map[string]*domain.Ticket
	now     func() time.Time
}

// NewMemoryTicketRepository returns an empty in-memory repository.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		now:     time.Now,
	}
}

func (r *memoryTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tickets[ticket.ID]; exists {
		return fmt.Errorf("%w: tickets_pkey", ErrDuplicate)
	}
	for _, existing := range r.tickets {
		if existing.ChannelID == ticket.ChannelID {
			return fmt.Errorf("%w: tickets_channel_id_key", ErrDuplicate)
		}
		if existing.Open && existing.GuildID == ticket.GuildID && existing.UserID == ticket.UserID {
			return fmt.Errorf("%w: tickets_one_open_per_user", ErrDuplicate)
		}
	}

	ticket.Open = true
	ticket.ClaimedBy = nil
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = r.now()
	}
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneTicket(ticket), nil
}

func (r *memoryTicketRepository) GetByChannel(_ context.Context, channelID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.ChannelID == channelID {
			return cloneTicket(ticket), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryTicketRepository) FindOpenByUser(_ context.Context, guildID, userID string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if ticket.Open && ticket.GuildID == guildID && ticket.UserID == userID {
			return cloneTicket(ticket), nil
		}
	}
	return nil, nil
}

func (r *memoryTicketRepository) ListByUser(_ context.Context, guildID, userID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.Lock()
	result := []domain.Ticket{}
	for _, ticket := range r.tickets {
		if ticket.GuildID == guildID && ticket.UserID == userID {
			result = append(result, *cloneTicket(ticket))
		}
	}
	r.mu.Unlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *memoryTicketRepository) CompareAndSwap(_ context.Context, filter TicketFilter, patch TicketPatch) (bool, error) {
	if err := filter.validate(); err != nil {
		return false, err
	}
	if patch.empty() {
		return false, ErrEmptyPatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ticket := range r.tickets {
		if !filter.matches(ticket) {
			continue
		}
		updated := cloneTicket(ticket)
		patch.apply(updated)
		if updated.ClaimedBy != nil && *updated.ClaimedBy == updated.UserID {
			return false, fmt.Errorf("tickets_claimer_not_opener: claimer %s is the opener", updated.UserID)
		}
		r.tickets[ticket.ID] = updated
		return true, nil
	}
	return false, nil
}
