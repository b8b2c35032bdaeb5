// Package platform is the narrow view of the chat platform the ticket core
// depends on: categories, channels, permission overwrites and messages.
package platform

import (
	"context"
	"io"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Permission bits, numerically identical to the platform's.
const (
	PermissionAddReactions       int64 = 1 << 6
	PermissionAdministrator      int64 = 1 << 3
	PermissionManageChannels     int64 = 1 << 4
	PermissionManageGuild        int64 = 1 << 5
	PermissionViewChannel        int64 = 1 << 10
	PermissionSendMessages       int64 = 1 << 11
	PermissionEmbedLinks         int64 = 1 << 14
	PermissionAttachFiles        int64 = 1 << 15
	PermissionReadMessageHistory int64 = 1 << 16
)

// OverwriteType tells whether an overwrite targets a role or a member.
type OverwriteType int

const (
	OverwriteRole OverwriteType = iota
	OverwriteMember
)

// Overwrite is a channel permission overwrite.
type Overwrite struct {
	ID    string
	Type  OverwriteType
	Allow int64
	Deny  int64
}

// Channel is a created text channel.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
}

// ButtonStyle mirrors the platform's button styles.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
	ButtonLink
)

// Button is an interactive control. Link buttons carry URL instead of CustomID.
type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	URL      string
	Disabled bool
}

// File is an uploaded attachment.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// MessageSend is an outgoing or replacement message.
type MessageSend struct {
	Content string
	Buttons []Button
	Files   []File
}

// Attachment is an uploaded file as seen after sending.
type Attachment struct {
	Filename string
	URL      string
}

// Message is a channel message as returned by the platform.
type Message struct {
	ID          string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Timestamp   time.Time
	Attachments []Attachment
}

// Client is implemented by the platform adapter. Every method may suspend
// on network I/O and returns a *Error on failure.
type Client interface {
	Categories(ctx context.Context, guildID string) ([]domain.Category, error)
	CreateCategory(ctx context.Context, guildID, name string, overwrites []Overwrite) (*domain.Category, error)
	CreateTextChannel(ctx context.Context, guildID, parentID, name string, overwrites []Overwrite) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) error
	DeleteChannel(ctx context.Context, channelID string) error
	SetPermission(ctx context.Context, channelID string, overwrite Overwrite) error
	RemovePermission(ctx context.Context, channelID, targetID string) error
	SendMessage(ctx context.Context, channelID string, msg MessageSend) (*Message, error)
	EditMessage(ctx context.Context, channelID, messageID string, msg MessageSend) error
	SendDirect(ctx context.Context, userID string, msg MessageSend) (*Message, error)
	// ChannelMessages returns up to limit messages older than beforeID (all when empty), newest first.
	ChannelMessages(ctx context.Context, channelID string, limit int, beforeID string) ([]Message, error)
}
