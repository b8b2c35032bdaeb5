package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

const transcriptGrantKey = "transcript_ticket_id"

// LinkMiddleware validates signed transcript links. The token comes from the
// token query parameter or a bearer authorization header.
type LinkMiddleware struct {
	tokens *TokenManager
}

// NewLinkMiddleware constructs middleware.
func NewLinkMiddleware(tokens *TokenManager) *LinkMiddleware {
	return &LinkMiddleware{tokens: tokens}
}

// Handle rejects requests whose token does not grant the :id route parameter.
func (m *LinkMiddleware) Handle(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperrors.NewUnauthorized("token required")
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return apperrors.NewUnauthorized("invalid authorization header")
		}
		token = parts[1]
	}

	ticketID, err := m.tokens.ParseTranscriptToken(token)
	if err != nil {
		return apperrors.NewUnauthorized("invalid or expired link")
	}
	if ticketID != c.Params("id") {
		return apperrors.NewForbidden("link does not grant this transcript")
	}

	c.Locals(transcriptGrantKey, ticketID)
	return c.Next()
}

// TranscriptGrantFromContext returns the ticket id granted by the link.
func TranscriptGrantFromContext(c *fiber.Ctx) (string, bool) {
	ticketID, ok := c.Locals(transcriptGrantKey).(string)
	return ticketID, ok && ticketID != ""
}
