package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/repository"
	"github.com/spec-kit/ticket-bot/internal/testutil"
)

type archiveFixture struct {
	fake   *testutil.FakePlatform
	repo   repository.TicketRepository
	ticket *domain.Ticket
}

func newArchiveFixture(t *testing.T, messages int) *archiveFixture {
	t.Helper()
	fake := testutil.NewFakePlatform()
	repo := repository.NewMemoryTicketRepository()
	catID := fake.AddCategory(testGuild, "Tickets", 0, 0)
	ch, err := fake.CreateTextChannel(context.Background(), testGuild, catID, "support-alice", nil)
	require.NoError(t, err)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < messages; i++ {
		fake.AddMessage(ch.ID, platform.Message{
			AuthorID:   opener.UserID,
			AuthorName: "Alice",
			Content:    fmt.Sprintf("message %03d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		})
	}

	closedBy := staffA.UserID
	closedAt := base.Add(time.Hour)
	ticket := &domain.Ticket{
		ID: "ticket-1", GuildID: testGuild, UserID: opener.UserID, ChannelID: ch.ID,
		Type: domain.TicketTypeSupport, ClaimedBy: &closedBy,
	}
	require.NoError(t, repo.Create(context.Background(), ticket))
	ok, err := repo.CompareAndSwap(context.Background(),
		repository.TicketFilter{ID: &ticket.ID, Open: boolPtr(true)},
		repository.TicketPatch{Open: boolPtr(false), ClosedAt: &closedAt, ClosedBy: &closedBy, CloseReason: strPtr("done")})
	require.NoError(t, err)
	require.True(t, ok)
	ticket, err = repo.GetByID(context.Background(), ticket.ID)
	require.NoError(t, err)

	return &archiveFixture{fake: fake, repo: repo, ticket: ticket}
}

func (f *archiveFixture) service(t *testing.T, cfg config.TranscriptConfig, tokens *auth.TokenManager) *TranscriptService {
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	return NewTranscriptService(TranscriptDependencies{
		Platform:   f.fake,
		TicketRepo: f.repo,
		Guilds:     config.Guilds{testGuild: testSettings, "main": {LogChannel: "log-main-guild"}},
		Tokens:     tokens,
		Config:     cfg,
	})
}

func strPtr(s string) *string { return &s }

func TestArchive_StoresTextAndHTML(t *testing.T) {
	f := newArchiveFixture(t, 3)
	svc := f.service(t, config.TranscriptConfig{}, nil)

	archive, err := svc.Archive(context.Background(), f.ticket)
	require.NoError(t, err)

	assert.Contains(t, archive.Text, "Reason: done")
	assert.Less(t, strings.Index(archive.Text, "message 000"), strings.Index(archive.Text, "message 002"), "oldest first")

	require.NotEmpty(t, archive.Path)
	html, err := os.ReadFile(archive.Path)
	require.NoError(t, err)
	assert.Contains(t, string(html), "message 001")
	assert.Contains(t, archive.Path, "ticket-1-")

	stored, err := f.repo.GetByID(context.Background(), f.ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, archive.Text, stored.Transcript)
	assert.Equal(t, archive.Path, stored.TranscriptPath)

	logged := f.fake.SentTo("log-guild")
	require.Len(t, logged, 1)
	assert.Contains(t, logged[0].Files, "transcript-ticket-1.txt")
	assert.Contains(t, logged[0].Files, "transcript-ticket-1.html")
	require.Len(t, f.fake.Direct, 1)
	assert.Equal(t, opener.UserID, f.fake.Direct[0].UserID)
	assert.Empty(t, archive.ViewURL)
	assert.Empty(t, f.fake.Edits)
}

func TestArchive_PaginatesUpToLimit(t *testing.T) {
	f := newArchiveFixture(t, 250)
	svc := f.service(t, config.TranscriptConfig{MessageLimit: 150}, nil)

	archive, err := svc.Archive(context.Background(), f.ticket)
	require.NoError(t, err)

	assert.NotContains(t, archive.Text, "message 099")
	assert.Contains(t, archive.Text, "message 100")
	assert.Contains(t, archive.Text, "message 249")
	assert.Less(t, strings.Index(archive.Text, "message 100"), strings.Index(archive.Text, "message 249"))
}

func TestArchive_PrefersMainLogChannel(t *testing.T) {
	f := newArchiveFixture(t, 1)

	_, err := f.service(t, config.TranscriptConfig{MainLogChannelID: "log-main"}, nil).Archive(context.Background(), f.ticket)
	require.NoError(t, err)
	assert.Len(t, f.fake.SentTo("log-main"), 1)
	assert.Empty(t, f.fake.SentTo("log-guild"))

	_, err = f.service(t, config.TranscriptConfig{MainGuildID: "main"}, nil).Archive(context.Background(), f.ticket)
	require.NoError(t, err)
	assert.Len(t, f.fake.SentTo("log-main-guild"), 1)
	assert.Empty(t, f.fake.SentTo("log-guild"))
}

func TestArchive_ViewOnlineFromAttachment(t *testing.T) {
	f := newArchiveFixture(t, 1)
	f.fake.AttachURLs = true

	archive, err := f.service(t, config.TranscriptConfig{}, nil).Archive(context.Background(), f.ticket)
	require.NoError(t, err)

	require.NotNil(t, archive.LogMessage)
	assert.Equal(t, "https://cdn.example/"+archive.LogMessage.ID+"/transcript-ticket-1.html", archive.ViewURL)
	require.Len(t, f.fake.Edits, 2, "both deliveries get the link")
	for _, edit := range f.fake.Edits {
		require.Len(t, edit.Msg.Buttons, 1)
		assert.Equal(t, platform.ButtonLink, edit.Msg.Buttons[0].Style)
		assert.Equal(t, archive.ViewURL, edit.Msg.Buttons[0].URL)
	}
}

func TestArchive_ViewOnlineSignedLink(t *testing.T) {
	f := newArchiveFixture(t, 1)
	tokens := auth.NewTokenManager("secret", time.Hour)

	archive, err := f.service(t, config.TranscriptConfig{PublicBaseURL: "https://tickets.example/"}, tokens).
		Archive(context.Background(), f.ticket)
	require.NoError(t, err)

	u, err := url.Parse(archive.ViewURL)
	require.NoError(t, err)
	assert.Equal(t, "tickets.example", u.Host)
	assert.Equal(t, "/transcripts/ticket-1", u.Path)

	ticketID, err := tokens.ParseTranscriptToken(u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "ticket-1", ticketID)
	assert.Len(t, f.fake.Edits, 2)
}

func TestArchive_DeliveryFailuresDegrade(t *testing.T) {
	f := newArchiveFixture(t, 2)
	f.fake.SetFail("SendMessage", platform.NewError("SendMessage", platform.KindForbidden, fmt.Errorf("missing access")))
	f.fake.SetFail("SendDirect", platform.NewError("SendDirect", platform.KindTransient, fmt.Errorf("timeout")))

	archive, err := f.service(t, config.TranscriptConfig{}, nil).Archive(context.Background(), f.ticket)
	require.NoError(t, err)
	assert.Nil(t, archive.LogMessage)
	assert.Nil(t, archive.DirectMessage)
	assert.NotEmpty(t, archive.Path)
}

func TestArchive_HistoryFailureKeepsGoing(t *testing.T) {
	f := newArchiveFixture(t, 2)
	f.fake.SetFail("ChannelMessages", platform.NewError("ChannelMessages", platform.KindTransient, fmt.Errorf("502")))

	archive, err := f.service(t, config.TranscriptConfig{}, nil).Archive(context.Background(), f.ticket)
	require.Error(t, err)
	require.NotNil(t, archive)
	assert.Contains(t, archive.Text, "Ticket ticket-1")
	assert.Len(t, f.fake.SentTo("log-guild"), 1)
}
