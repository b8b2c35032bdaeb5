package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

const uniqueViolation = "23505"

// TicketRepository encapsulates ticket persistence.
//
// CompareAndSwap is the only way to change a stored ticket: it applies patch to
// the ticket matching filter and reports whether a row changed. Callers branch on
// that boolean to resolve concurrent claims, unclaims and closes.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error)
	FindOpenByUser(ctx context.Context, guildID, userID string) (*domain.Ticket, error)
	ListByUser(ctx context.Context, guildID, userID string, limit int) ([]domain.Ticket, error)
	CompareAndSwap(ctx context.Context, filter TicketFilter, patch TicketPatch) (bool, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the postgres repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, guild_id, user_id, channel_id, ticket_type, open, claimed_by, created_at,
        closed_at, closed_by, close_reason, transcript, transcript_path, message_id,
        description_prompt_message_id, description_submitted, description_text,
        close_requested_by, close_request_reason`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, guild_id, user_id, channel_id, ticket_type, open, claimed_by,
            message_id, description_prompt_message_id)
        VALUES ($1,$2,$3,$4,$5,TRUE,NULL,$6,$7)
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.GuildID,
		ticket.UserID,
		ticket.ChannelID,
		ticket.Type,
		ticket.MessageID,
		ticket.DescriptionPromptMessageID,
	).Scan(&ticket.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		}
		return err
	}
	ticket.Open = true
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByChannel(ctx context.Context, channelID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE channel_id=$1`
	return r.fetchSingle(ctx, query, channelID)
}

func (r *ticketRepository) FindOpenByUser(ctx context.Context, guildID, userID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE guild_id=$1 AND user_id=$2 AND open`
	ticket, err := r.fetchSingle(ctx, query, guildID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) ListByUser(ctx context.Context, guildID, userID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + ticketColumns + `
             FROM tickets WHERE guild_id=$1 AND user_id=$2 ORDER BY created_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, guildID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) CompareAndSwap(ctx context.Context, filter TicketFilter, patch TicketPatch) (bool, error) {
	if err := filter.validate(); err != nil {
		return false, err
	}
	if patch.empty() {
		return false, ErrEmptyPatch
	}

	args := []any{}
	sets := []string{}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.ClearClaim {
		sets = append(sets, "claimed_by=NULL")
	}
	if patch.ClaimedBy != nil {
		set("claimed_by", *patch.ClaimedBy)
	}
	if patch.Open != nil {
		set("open", *patch.Open)
	}
	if patch.ClosedAt != nil {
		set("closed_at", *patch.ClosedAt)
	}
	if patch.ClosedBy != nil {
		set("closed_by", *patch.ClosedBy)
	}
	if patch.CloseReason != nil {
		set("close_reason", *patch.CloseReason)
	}
	if patch.Transcript != nil {
		set("transcript", *patch.Transcript)
	}
	if patch.TranscriptPath != nil {
		set("transcript_path", *patch.TranscriptPath)
	}
	if patch.MessageID != nil {
		set("message_id", *patch.MessageID)
	}
	if patch.DescriptionPromptMessageID != nil {
		set("description_prompt_message_id", *patch.DescriptionPromptMessageID)
	}
	if patch.DescriptionSubmitted != nil {
		set("description_submitted", *patch.DescriptionSubmitted)
	}
	if patch.DescriptionText != nil {
		set("description_text", *patch.DescriptionText)
	}
	if patch.ClearCloseRequest {
		sets = append(sets, "close_requested_by=NULL", "close_request_reason=''")
	}
	if patch.CloseRequestedBy != nil {
		set("close_requested_by", *patch.CloseRequestedBy)
	}
	if patch.CloseRequestReason != nil {
		set("close_request_reason", *patch.CloseRequestReason)
	}

	clauses := []string{}
	where := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}
	if filter.ID != nil {
		where("id=$%d", *filter.ID)
	}
	if filter.ChannelID != nil {
		where("channel_id=$%d", *filter.ChannelID)
	}
	if filter.Open != nil {
		where("open=$%d", *filter.Open)
	}
	if filter.ClaimedBy != nil {
		where("claimed_by=$%d", *filter.ClaimedBy)
	}
	if filter.Unclaimed {
		clauses = append(clauses, "claimed_by IS NULL")
	}
	if filter.CloseRequestedBy != nil {
		where("close_requested_by=$%d", *filter.CloseRequestedBy)
	}
	if filter.NoCloseRequest {
		clauses = append(clauses, "close_requested_by IS NULL")
	}
	if filter.DescriptionSubmitted != nil {
		where("description_submitted=$%d", *filter.DescriptionSubmitted)
	}

	query := fmt.Sprintf(`UPDATE tickets SET %s WHERE %s`,
		strings.Join(sets, ", "), strings.Join(clauses, " AND "))
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ticket, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.GuildID,
		&ticket.UserID,
		&ticket.ChannelID,
		&ticket.Type,
		&ticket.Open,
		&ticket.ClaimedBy,
		&ticket.CreatedAt,
		&ticket.ClosedAt,
		&ticket.ClosedBy,
		&ticket.CloseReason,
		&ticket.Transcript,
		&ticket.TranscriptPath,
		&ticket.MessageID,
		&ticket.DescriptionPromptMessageID,
		&ticket.DescriptionSubmitted,
		&ticket.DescriptionText,
		&ticket.CloseRequestedBy,
		&ticket.CloseRequestReason,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}
