package handlers

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/repository"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

// TranscriptsHandler serves archived HTML transcripts. It runs behind
// auth.LinkMiddleware.
type TranscriptsHandler struct {
	tickets repository.TicketRepository
	dir     string
}

// NewTranscriptsHandler constructs handler. Files are only served from dir.
func NewTranscriptsHandler(tickets repository.TicketRepository, dir string) *TranscriptsHandler {
	return &TranscriptsHandler{tickets: tickets, dir: dir}
}

// View GET /transcripts/:id?token=.
func (h *TranscriptsHandler) View(c *fiber.Ctx) error {
	ticketID, ok := auth.TranscriptGrantFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("token required")
	}

	ticket, err := h.tickets.GetByID(c.UserContext(), ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("transcript", nil)
	}
	if err != nil {
		return err
	}
	if ticket.Open || ticket.TranscriptPath == "" {
		return apperrors.NewNotFound("transcript", nil)
	}

	body, err := os.ReadFile(filepath.Join(h.dir, filepath.Base(ticket.TranscriptPath)))
	if errors.Is(err, os.ErrNotExist) {
		return apperrors.NewNotFound("transcript", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	c.Set(fiber.HeaderContentSecurityPolicy, "default-src 'none'; style-src 'unsafe-inline'; img-src https: data:")
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	c.Type("html", "utf-8")
	return c.Send(body)
}
