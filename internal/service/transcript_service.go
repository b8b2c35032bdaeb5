package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/transcript"
)

const messagePageSize = 100

// Archive is the outcome of archiving one ticket. Path is empty when no
// HTML transcript was written; the deliveries are nil when they failed.
type Archive struct {
	Text          string
	Path          string
	ViewURL       string
	LogMessage    *platform.Message
	DirectMessage *platform.Message
}

// TranscriptService renders, stores and delivers ticket transcripts.
type TranscriptService struct {
	platform platform.Client
	tickets  repository.TicketRepository
	guilds   config.Guilds
	tokens   *auth.TokenManager
	cfg      config.TranscriptConfig
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// TranscriptDependencies bundles collaborators for the transcript service.
type TranscriptDependencies struct {
	Platform   platform.Client
	TicketRepo repository.TicketRepository
	Guilds     config.Guilds
	Tokens     *auth.TokenManager
	Config     config.TranscriptConfig
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTranscriptService constructs the service.
func NewTranscriptService(deps TranscriptDependencies) *TranscriptService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 1000
	}
	if cfg.Dir == "" {
		cfg.Dir = "transcripts"
	}
	return &TranscriptService{
		platform: deps.Platform,
		tickets:  deps.TicketRepo,
		guilds:   deps.Guilds,
		tokens:   deps.Tokens,
		cfg:      cfg,
		metrics:  deps.Metrics,
		logger:   logger,
	}
}

// Archive renders the channel history of a closed ticket, stores the text
// inline and the HTML on disk, then delivers both to the log channel and the
// opener. Only failures to read the history or store the result are
// returned; rendering, file and delivery failures degrade silently.
func (s *TranscriptService) Archive(ctx context.Context, ticket *domain.Ticket) (*Archive, error) {
	var errs []error

	messages, err := s.history(ctx, ticket.ChannelID)
	if err != nil {
		errs = append(errs, fmt.Errorf("read channel history: %w", err))
	}

	doc := transcript.Render(transcript.MetaFromTicket(ticket), messages)
	if doc.HTMLErr != nil {
		s.degraded("html", ticket, doc.HTMLErr)
	}

	archive := &Archive{Text: doc.Text}
	if doc.HTML != nil {
		path, err := s.writeHTML(ticket.ID, doc.HTML)
		if err != nil {
			s.degraded("write", ticket, err)
		} else {
			archive.Path = path
		}
	}

	stored, err := s.tickets.CompareAndSwap(ctx,
		repository.TicketFilter{ID: &ticket.ID},
		repository.TicketPatch{Transcript: &archive.Text, TranscriptPath: &archive.Path})
	if err != nil {
		errs = append(errs, fmt.Errorf("store transcript: %w", err))
	} else if !stored {
		errs = append(errs, fmt.Errorf("store transcript: %w", repository.ErrNotFound))
	}
	ticket.Transcript = archive.Text
	ticket.TranscriptPath = archive.Path

	summary := deliverySummary(ticket)
	if channelID := s.logChannel(ticket.GuildID); channelID != "" {
		msg, err := s.platform.SendMessage(ctx, channelID, platform.MessageSend{
			Content: summary,
			Files:   transcriptFiles(ticket.ID, doc),
		})
		if err != nil {
			s.degraded("log_channel", ticket, err)
		} else {
			archive.LogMessage = msg
		}
	}

	dm, err := s.platform.SendDirect(ctx, ticket.UserID, platform.MessageSend{
		Content: summary,
		Files:   transcriptFiles(ticket.ID, doc),
	})
	switch {
	case platform.IsUnreachable(err):
		s.logger.Debug("opener does not accept direct messages", zap.String("user_id", ticket.UserID))
	case err != nil:
		s.degraded("dm", ticket, err)
	default:
		archive.DirectMessage = dm
	}

	archive.ViewURL = s.viewURL(ticket, archive)
	if archive.ViewURL != "" {
		link := platform.MessageSend{
			Content: summary,
			Buttons: []platform.Button{{Label: "View online", Style: platform.ButtonLink, URL: archive.ViewURL}},
		}
		for _, msg := range []*platform.Message{archive.LogMessage, archive.DirectMessage} {
			if msg == nil {
				continue
			}
			if err := s.platform.EditMessage(ctx, msg.ChannelID, msg.ID, link); err != nil {
				s.degraded("link", ticket, err)
			}
		}
	}

	return archive, errors.Join(errs...)
}

// history returns up to the configured number of messages, oldest first.
func (s *TranscriptService) history(ctx context.Context, channelID string) ([]platform.Message, error) {
	var (
		newestFirst []platform.Message
		before      string
	)
	for len(newestFirst) < s.cfg.MessageLimit {
		limit := min(messagePageSize, s.cfg.MessageLimit-len(newestFirst))
		page, err := s.platform.ChannelMessages(ctx, channelID, limit, before)
		if err != nil {
			return reverse(newestFirst), err
		}
		newestFirst = append(newestFirst, page...)
		if len(page) < limit {
			break
		}
		before = page[len(page)-1].ID
	}
	return reverse(newestFirst), nil
}

func (s *TranscriptService) writeHTML(ticketID string, html []byte) (string, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}
	path := filepath.Join(s.cfg.Dir, transcript.FileName(ticketID, html))
	if err := atomic.WriteFile(path, bytes.NewReader(html)); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}
	return path, nil
}

// logChannel prefers the main guild's log channel over the ticket guild's own.
func (s *TranscriptService) logChannel(guildID string) string {
	if s.cfg.MainLogChannelID != "" {
		return s.cfg.MainLogChannelID
	}
	if s.cfg.MainGuildID != "" {
		if channelID := s.guilds.Lookup(s.cfg.MainGuildID).LogChannel; channelID != "" {
			return channelID
		}
	}
	return s.guilds.Lookup(guildID).LogChannel
}

// viewURL is the uploaded HTML attachment URL, or a signed link to the
// transcript viewer when a public base URL is configured.
func (s *TranscriptService) viewURL(ticket *domain.Ticket, archive *Archive) string {
	htmlName := htmlFileName(ticket.ID)
	for _, msg := range []*platform.Message{archive.LogMessage, archive.DirectMessage} {
		if msg == nil {
			continue
		}
		for _, att := range msg.Attachments {
			if att.Filename == htmlName && att.URL != "" {
				return att.URL
			}
		}
	}

	if s.cfg.PublicBaseURL == "" || s.tokens == nil || archive.Path == "" {
		return ""
	}
	token, _, err := s.tokens.IssueTranscriptToken(ticket.ID)
	if err != nil {
		s.degraded("link", ticket, err)
		return ""
	}
	return fmt.Sprintf("%s/transcripts/%s?token=%s",
		strings.TrimRight(s.cfg.PublicBaseURL, "/"), url.PathEscape(ticket.ID), url.QueryEscape(token))
}

func (s *TranscriptService) degraded(stage string, ticket *domain.Ticket, err error) {
	s.metrics.RecordDegraded(stage)
	s.logger.Warn("transcript step failed",
		zap.String("stage", stage),
		zap.String("ticket_id", ticket.ID),
		zap.Error(err))
}

func transcriptFiles(ticketID string, doc transcript.Document) []platform.File {
	files := []platform.File{{
		Name:        "transcript-" + ticketID + ".txt",
		ContentType: "text/plain; charset=utf-8",
		Reader:      strings.NewReader(doc.Text),
	}}
	if doc.HTML != nil {
		files = append(files, platform.File{
			Name:        htmlFileName(ticketID),
			ContentType: "text/html; charset=utf-8",
			Reader:      bytes.NewReader(doc.HTML),
		})
	}
	return files
}

func htmlFileName(ticketID string) string {
	return "transcript-" + ticketID + ".html"
}

func deliverySummary(ticket *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket **%s** (%s) opened by %s was closed", ticket.ID, ticket.Type, mention(ticket.UserID))
	if ticket.ClosedBy != nil {
		fmt.Fprintf(&b, " by %s", mention(*ticket.ClosedBy))
	}
	b.WriteString(".")
	if ticket.CloseReason != "" {
		b.WriteString("\nReason: " + ticket.CloseReason)
	}
	return b.String()
}

func reverse(messages []platform.Message) []platform.Message {
	out := make([]platform.Message, len(messages))
	for i, msg := range messages {
		out[len(messages)-1-i] = msg
	}
	return out
}
