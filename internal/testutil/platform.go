// Package testutil holds an in-memory chat platform used by package tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// FakeChannel is a text channel or category held by the fake.
type FakeChannel struct {
	ID         string
	GuildID    string
	ParentID   string
	Name       string
	Position   int
	Category   bool
	Overwrites map[string]platform.Overwrite
	Messages   []platform.Message
}

// SentMessage records a message delivered to a channel or a DM.
type SentMessage struct {
	ID        string
	ChannelID string
	UserID    string
	Msg       platform.MessageSend
	Files     map[string][]byte
}

// FakePlatform implements platform.Client in memory. Fail maps an operation
// name ("CreateTextChannel", "SendDirect", ...) to the error it returns.
type FakePlatform struct {
	mu       sync.Mutex
	seq      int
	channels map[string]*FakeChannel

	Fail         map[string]error
	Sent         []SentMessage
	Direct       []SentMessage
	Edits        []SentMessage
	Deleted      []string
	AttachURLs   bool
	BeforeCreate func(name string)
}

// NewFakePlatform returns an empty platform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		channels: make(map[string]*FakeChannel),
		Fail:     make(map[string]error),
	}
}

func (f *FakePlatform) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *FakePlatform) fail(op string) error {
	if err, ok := f.Fail[op]; ok {
		return err
	}
	return nil
}

// SetFail installs or clears (err == nil) an injected failure.
func (f *FakePlatform) SetFail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Fail, op)
		return
	}
	f.Fail[op] = err
}

// AddCategory seeds a category with children placeholder channels.
func (f *FakePlatform) AddCategory(guildID, name string, position, children int) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID("cat")
	f.channels[id] = &FakeChannel{ID: id, GuildID: guildID, Name: name, Position: position, Category: true}
	for i := 0; i < children; i++ {
		cid := f.nextID("filler")
		f.channels[cid] = &FakeChannel{ID: cid, GuildID: guildID, ParentID: id, Name: cid}
	}
	return id
}

// AddMessage appends a message to a channel's history.
func (f *FakePlatform) AddMessage(channelID string, msg platform.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.channels[channelID]; ok {
		if msg.ID == "" {
			msg.ID = f.nextID("msg")
		}
		msg.ChannelID = channelID
		ch.Messages = append(ch.Messages, msg)
	}
}

// Channel returns a copy of a channel, or nil.
func (f *FakePlatform) Channel(id string) *FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	if !ok {
		return nil
	}
	c := *ch
	c.Overwrites = make(map[string]platform.Overwrite, len(ch.Overwrites))
	for k, v := range ch.Overwrites {
		c.Overwrites[k] = v
	}
	return &c
}

// TextChannels returns the non-category channels of a guild created through the client.
func (f *FakePlatform) TextChannels(guildID string) []FakeChannel {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []FakeChannel
	for _, ch := range f.channels {
		if ch.GuildID == guildID && !ch.Category && ch.Name != ch.ID {
			out = append(out, *ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SentTo returns messages sent to channelID.
func (f *FakePlatform) SentTo(channelID string) []SentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []SentMessage
	for _, m := range f.Sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}

// DeletedCount returns how many times channelID was deleted.
func (f *FakePlatform) DeletedCount(channelID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.Deleted {
		if id == channelID {
			n++
		}
	}
	return n
}

func (f *FakePlatform) Categories(_ context.Context, guildID string) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Categories"); err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for _, ch := range f.channels {
		if ch.ParentID != "" {
			counts[ch.ParentID]++
		}
	}
	var out []domain.Category
	for _, ch := range f.channels {
		if ch.GuildID == guildID && ch.Category {
			out = append(out, domain.Category{ID: ch.ID, Name: ch.Name, Position: ch.Position, Children: counts[ch.ID]})
		}
	}
	return out, nil
}

func (f *FakePlatform) CreateCategory(_ context.Context, guildID, name string, overwrites []platform.Overwrite) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateCategory"); err != nil {
		return nil, err
	}
	id := f.nextID("cat")
	f.channels[id] = &FakeChannel{ID: id, GuildID: guildID, Name: name, Position: 100 + f.seq, Category: true, Overwrites: toMap(overwrites)}
	return &domain.Category{ID: id, Name: name, Position: 100 + f.seq}, nil
}

func (f *FakePlatform) CreateTextChannel(_ context.Context, guildID, parentID, name string, overwrites []platform.Overwrite) (*platform.Channel, error) {
	if f.BeforeCreate != nil {
		f.BeforeCreate(name)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateTextChannel"); err != nil {
		return nil, err
	}
	id := f.nextID("chan")
	f.channels[id] = &FakeChannel{ID: id, GuildID: guildID, ParentID: parentID, Name: name, Overwrites: toMap(overwrites)}
	return &platform.Channel{ID: id, GuildID: guildID, ParentID: parentID, Name: name}, nil
}

func (f *FakePlatform) RenameChannel(_ context.Context, channelID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RenameChannel"); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.NewError("RenameChannel", platform.KindNotFound, errors.New("unknown channel"))
	}
	ch.Name = name
	return nil
}

func (f *FakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteChannel"); err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, channelID)
	if _, ok := f.channels[channelID]; !ok {
		return platform.NewError("DeleteChannel", platform.KindNotFound, errors.New("unknown channel"))
	}
	delete(f.channels, channelID)
	return nil
}

func (f *FakePlatform) SetPermission(_ context.Context, channelID string, overwrite platform.Overwrite) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetPermission"); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.NewError("SetPermission", platform.KindNotFound, errors.New("unknown channel"))
	}
	if ch.Overwrites == nil {
		ch.Overwrites = map[string]platform.Overwrite{}
	}
	ch.Overwrites[overwrite.ID] = overwrite
	return nil
}

func (f *FakePlatform) RemovePermission(_ context.Context, channelID, targetID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RemovePermission"); err != nil {
		return err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return platform.NewError("RemovePermission", platform.KindNotFound, errors.New("unknown channel"))
	}
	delete(ch.Overwrites, targetID)
	return nil
}

func (f *FakePlatform) SendMessage(_ context.Context, channelID string, msg platform.MessageSend) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SendMessage"); err != nil {
		return nil, err
	}
	if _, ok := f.channels[channelID]; !ok && channelID == "" {
		return nil, platform.NewError("SendMessage", platform.KindNotFound, errors.New("unknown channel"))
	}
	return f.record(&f.Sent, channelID, "", msg), nil
}

func (f *FakePlatform) EditMessage(_ context.Context, channelID, messageID string, msg platform.MessageSend) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EditMessage"); err != nil {
		return err
	}
	f.Edits = append(f.Edits, SentMessage{ID: messageID, ChannelID: channelID, Msg: msg})
	return nil
}

func (f *FakePlatform) SendDirect(_ context.Context, userID string, msg platform.MessageSend) (*platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SendDirect"); err != nil {
		return nil, err
	}
	return f.record(&f.Direct, "dm-"+userID, userID, msg), nil
}

func (f *FakePlatform) ChannelMessages(_ context.Context, channelID string, limit int, beforeID string) ([]platform.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ChannelMessages"); err != nil {
		return nil, err
	}
	ch, ok := f.channels[channelID]
	if !ok {
		return nil, platform.NewError("ChannelMessages", platform.KindNotFound, errors.New("unknown channel"))
	}
	end := len(ch.Messages)
	if beforeID != "" {
		end = 0
		for i, m := range ch.Messages {
			if m.ID == beforeID {
				end = i
				break
			}
		}
	}
	var out []platform.Message
	for i := end - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, ch.Messages[i])
	}
	return out, nil
}

func (f *FakePlatform) record(into *[]SentMessage, channelID, userID string, msg platform.MessageSend) *platform.Message {
	id := f.nextID("msg")
	files := map[string][]byte{}
	var attachments []platform.Attachment
	for _, file := range msg.Files {
		data, _ := io.ReadAll(file.Reader)
		files[file.Name] = data
		att := platform.Attachment{Filename: file.Name}
		if f.AttachURLs {
			att.URL = "https://cdn.example/" + id + "/" + file.Name
		}
		attachments = append(attachments, att)
	}
	*into = append(*into, SentMessage{ID: id, ChannelID: channelID, UserID: userID, Msg: msg, Files: files})
	if ch, ok := f.channels[channelID]; ok {
		ch.Messages = append(ch.Messages, platform.Message{
			ID: id, ChannelID: channelID, AuthorID: "bot", AuthorName: "TicketBot", AuthorBot: true,
			Content: msg.Content, Timestamp: time.Now(),
		})
	}
	return &platform.Message{ID: id, ChannelID: channelID, Content: msg.Content, Attachments: attachments}
}

func toMap(overwrites []platform.Overwrite) map[string]platform.Overwrite {
	m := make(map[string]platform.Overwrite, len(overwrites))
	for _, ow := range overwrites {
		m[ow.ID] = ow
	}
	return m
}
