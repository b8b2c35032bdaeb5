package transcript

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

func sampleMeta() Meta {
	return Meta{
		TicketID:  "t-1",
		Type:      domain.TicketTypeSupport,
		OpenerID:  "opener",
		ClaimedBy: "staff",
		ClosedBy:  "staff",
		Reason:    "resolved",
		OpenedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		ClosedAt:  time.Date(2024, 5, 1, 11, 0, 0, 0, time.UTC),
	}
}

func sampleMessages() []platform.Message {
	return []platform.Message{
		{ID: "1", AuthorID: "opener", AuthorName: "alice", Content: "I need **help**",
			Timestamp: time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)},
		{ID: "2", AuthorID: "staff", AuthorName: "<b>mod</b>", Content: "<script>alert(1)</script> sure",
			Timestamp: time.Date(2024, 5, 1, 10, 2, 0, 0, time.UTC),
			Attachments: []platform.Attachment{{Filename: "log.txt", URL: "https://cdn.example/log.txt"}}},
	}
}

func TestRenderText(t *testing.T) {
	text := RenderText(sampleMeta(), sampleMessages())

	assert.Contains(t, text, "Ticket t-1 (support)")
	assert.Contains(t, text, "Closed by staff at 2024-05-01 11:00:00")
	assert.Contains(t, text, "Reason: resolved")
	assert.Contains(t, text, "[2024-05-01 10:01:00] alice: I need **help**")
	assert.Contains(t, text, "attachment: log.txt https://cdn.example/log.txt")
	assert.Less(t, strings.Index(text, "alice"), strings.Index(text, "<b>mod</b>"), "messages keep their order")
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleMeta(), sampleMessages())
	require.NoError(t, err)
	page := string(html)

	assert.Contains(t, page, "<strong>help</strong>")
	assert.NotContains(t, page, "<script>alert(1)</script>")
	assert.Contains(t, page, "&lt;b&gt;mod&lt;/b&gt;")
	assert.Contains(t, page, `href="https://cdn.example/log.txt"`)
	assert.Contains(t, page, "Reason: resolved")
}

func TestRender(t *testing.T) {
	doc := Render(sampleMeta(), nil)
	assert.NoError(t, doc.HTMLErr)
	assert.NotEmpty(t, doc.HTML)
	assert.Contains(t, doc.Text, "Opened by opener")
}

func TestFileName(t *testing.T) {
	a := FileName("t-1", []byte("one"))
	b := FileName("t-1", []byte("two"))

	assert.Regexp(t, `^t-1-[0-9a-f]{16}\.html$`, a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, FileName("t-1", []byte("one")))
}

func TestMetaFromTicket(t *testing.T) {
	claimer, closer := "staff", "staff"
	closedAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	meta := MetaFromTicket(&domain.Ticket{
		ID: "t", UserID: "u", Type: domain.TicketTypeHigh,
		ClaimedBy: &claimer, ClosedBy: &closer, ClosedAt: &closedAt, CloseReason: "done",
	})

	assert.Equal(t, "u", meta.OpenerID)
	assert.Equal(t, "staff", meta.ClaimedBy)
	assert.Equal(t, closedAt, meta.ClosedAt)
	assert.Equal(t, "done", meta.Reason)
}
