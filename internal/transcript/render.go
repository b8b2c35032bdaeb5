// Package transcript renders the message history of a ticket channel.
package transcript

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"html/template"
	"strings"
	"sync"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

const timeLayout = "2006-01-02 15:04:05"

// Meta describes the ticket a transcript belongs to.
type Meta struct {
	TicketID    string
	GuildID     string
	ChannelID   string
	Type        domain.TicketType
	OpenerID    string
	ClaimedBy   string
	ClosedBy    string
	Reason      string
	Description string
	OpenedAt    time.Time
	ClosedAt    time.Time
}

// MetaFromTicket fills Meta from a stored ticket.
func MetaFromTicket(t *domain.Ticket) Meta {
	meta := Meta{
		TicketID:    t.ID,
		GuildID:     t.GuildID,
		ChannelID:   t.ChannelID,
		Type:        t.Type,
		OpenerID:    t.UserID,
		Reason:      t.CloseReason,
		Description: t.DescriptionText,
		OpenedAt:    t.CreatedAt,
	}
	if t.ClaimedBy != nil {
		meta.ClaimedBy = *t.ClaimedBy
	}
	if t.ClosedBy != nil {
		meta.ClosedBy = *t.ClosedBy
	}
	if t.ClosedAt != nil {
		meta.ClosedAt = *t.ClosedAt
	}
	return meta
}

// Document is a rendered transcript. HTML is nil when HTMLErr is set.
type Document struct {
	Text    string
	HTML    []byte
	HTMLErr error
}

// Render produces the text transcript and, best effort, the HTML one.
// Messages must be ordered oldest first.
func Render(meta Meta, messages []platform.Message) Document {
	doc := Document{Text: RenderText(meta, messages)}
	doc.HTML, doc.HTMLErr = RenderHTML(meta, messages)
	if doc.HTMLErr != nil {
		doc.HTML = nil
	}
	return doc
}

// RenderText renders a plain-text transcript.
func RenderText(meta Meta, messages []platform.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket %s (%s)\n", meta.TicketID, meta.Type)
	fmt.Fprintf(&b, "Opened by %s at %s\n", meta.OpenerID, formatTime(meta.OpenedAt))
	if meta.ClaimedBy != "" {
		fmt.Fprintf(&b, "Claimed by %s\n", meta.ClaimedBy)
	}
	if meta.ClosedBy != "" {
		fmt.Fprintf(&b, "Closed by %s at %s\n", meta.ClosedBy, formatTime(meta.ClosedAt))
	}
	if meta.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", meta.Reason)
	}
	if meta.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", meta.Description)
	}
	b.WriteString("\n")

	for _, msg := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n", formatTime(msg.Timestamp), authorLabel(msg), msg.Content)
		for _, att := range msg.Attachments {
			fmt.Fprintf(&b, "    attachment: %s %s\n", att.Filename, att.URL)
		}
	}
	return b.String()
}

var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

// markdownRenderer is shared; goldmark keeps per-call state in Convert.
// Raw HTML in messages is escaped since the unsafe renderer option is never set.
func markdownRenderer() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdown
}

type htmlMessage struct {
	Time        string
	Author      string
	Bot         bool
	Body        template.HTML
	Attachments []platform.Attachment
}

type htmlPage struct {
	Meta     Meta
	Opened   string
	Closed   string
	Messages []htmlMessage
}

var pageTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ticket {{.Meta.TicketID}}</title>
<style>
body{font-family:sans-serif;background:#313338;color:#dbdee1;margin:0;padding:24px}
header{border-bottom:1px solid #4e5058;margin-bottom:16px}
.msg{padding:6px 0}
.author{font-weight:bold;color:#f2f3f5}
.bot{font-size:11px;background:#5865f2;border-radius:3px;padding:0 4px;margin-left:4px}
.time{color:#949ba4;font-size:12px;margin-left:8px}
.body p{margin:2px 0}
a{color:#00a8fc}
</style>
</head>
<body>
<header>
<h1>Ticket {{.Meta.TicketID}}</h1>
<p>Type: {{.Meta.Type}} &middot; Opened by {{.Meta.OpenerID}} at {{.Opened}}</p>
{{- if .Meta.ClaimedBy}}<p>Claimed by {{.Meta.ClaimedBy}}</p>{{end}}
{{- if .Meta.ClosedBy}}<p>Closed by {{.Meta.ClosedBy}} at {{.Closed}}</p>{{end}}
{{- if .Meta.Reason}}<p>Reason: {{.Meta.Reason}}</p>{{end}}
{{- if .Meta.Description}}<p>Description: {{.Meta.Description}}</p>{{end}}
</header>
{{range .Messages}}<div class="msg">
<span class="author">{{.Author}}</span>{{if .Bot}}<span class="bot">BOT</span>{{end}}<span class="time">{{.Time}}</span>
<div class="body">{{.Body}}</div>
{{range .Attachments}}<div class="attachment"><a href="{{.URL}}">{{.Filename}}</a></div>{{end}}
</div>
{{end}}</body>
</html>
`))

// RenderHTML renders a standalone HTML transcript with markdown message bodies.
func RenderHTML(meta Meta, messages []platform.Message) ([]byte, error) {
	page := htmlPage{
		Meta:     meta,
		Opened:   formatTime(meta.OpenedAt),
		Closed:   formatTime(meta.ClosedAt),
		Messages: make([]htmlMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		var body bytes.Buffer
		if err := markdownRenderer().Convert([]byte(msg.Content), &body); err != nil {
			return nil, fmt.Errorf("render message %s: %w", msg.ID, err)
		}
		page.Messages = append(page.Messages, htmlMessage{
			Time:        formatTime(msg.Timestamp),
			Author:      authorLabel(msg),
			Bot:         msg.AuthorBot,
			Body:        template.HTML(body.String()),
			Attachments: msg.Attachments,
		})
	}

	var out bytes.Buffer
	if err := pageTemplate.Execute(&out, page); err != nil {
		return nil, fmt.Errorf("execute transcript template: %w", err)
	}
	return out.Bytes(), nil
}

// Digest returns a short blake2b fingerprint of content, used in archive file names.
func Digest(content []byte) string {
	sum := blake2b.Sum256(content)
	return hex.EncodeToString(sum[:8])
}

// FileName is the archive file name of a ticket's HTML transcript.
func FileName(ticketID string, html []byte) string {
	return fmt.Sprintf("%s-%s.html", ticketID, Digest(html))
}

func authorLabel(msg platform.Message) string {
	if msg.AuthorName != "" {
		return msg.AuthorName
	}
	return msg.AuthorID
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(timeLayout)
}
