package bot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/auth"
	"github.com/spec-kit/ticket-bot/internal/config"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/service"
	"github.com/spec-kit/ticket-bot/internal/testutil"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

type mockTickets struct {
	mock.Mock
}

func (m *mockTickets) Open(ctx context.Context, in service.OpenInput) (*service.OpenResult, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*service.OpenResult)
	return res, args.Error(1)
}

func (m *mockTickets) Claim(ctx context.Context, in service.ActionInput) (*domain.Ticket, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

func (m *mockTickets) Unclaim(ctx context.Context, in service.ActionInput) (*domain.Ticket, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

func (m *mockTickets) RequestClose(ctx context.Context, in service.CloseInput) (*domain.Ticket, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

func (m *mockTickets) ResolveCloseRequest(ctx context.Context, in service.ActionInput, accept bool) (*service.CloseResult, error) {
	args := m.Called(ctx, in, accept)
	return nil, args.Error(0)
}

func (m *mockTickets) Close(ctx context.Context, in service.CloseInput) (*service.CloseResult, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

func (m *mockTickets) AddMember(ctx context.Context, in service.MemberInput) (*domain.Ticket, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

func (m *mockTickets) RemoveMember(ctx context.Context, in service.MemberInput) (*domain.Ticket, error) {
	args := m.Called(ctx, in)
	return nil, args.Error(0)
}

func (m *mockTickets) Rename(ctx context.Context, in service.ActionInput, name string) (*domain.Ticket, error) {
	args := m.Called(ctx, in, name)
	return nil, args.Error(0)
}

func (m *mockTickets) SubmitDescription(ctx context.Context, in service.ActionInput, text string) (*domain.Ticket, error) {
	args := m.Called(ctx, in, text)
	return nil, args.Error(0)
}

func (m *mockTickets) History(ctx context.Context, in service.MemberInput) ([]domain.Ticket, error) {
	args := m.Called(ctx, in)
	tickets, _ := args.Get(0).([]domain.Ticket)
	return tickets, args.Error(1)
}

// runOnClosing mimics a committed close by firing the deletion hook.
func runOnClosing(args mock.Arguments) {
	var in service.ActionInput
	switch v := args.Get(1).(type) {
	case service.CloseInput:
		in = v.ActionInput
	case service.ActionInput:
		in = v
	}
	if in.OnClosing != nil {
		in.OnClosing(context.Background(), 5*time.Second)
	}
}

type recordedResponder struct {
	deferred  bool
	replies   []string
	followUps []string
	modals    []Modal
}

func (r *recordedResponder) Reply(_ context.Context, content string) error {
	r.replies = append(r.replies, content)
	return nil
}

func (r *recordedResponder) Defer(context.Context) error {
	r.deferred = true
	return nil
}

func (r *recordedResponder) FollowUp(_ context.Context, content string) error {
	r.followUps = append(r.followUps, content)
	return nil
}

func (r *recordedResponder) OpenModal(_ context.Context, modal Modal) error {
	r.modals = append(r.modals, modal)
	return nil
}

var (
	staff      = auth.Member{UserID: "100", RoleIDs: []string{"role-cmd"}}
	outsider   = auth.Member{UserID: "200"}
	admin      = auth.Member{UserID: "300", Permissions: platform.PermissionAdministrator}
	testGuilds = config.Guilds{"g": {CommandRole: "role-cmd"}}
)

func newRouter(tickets *mockTickets, fake *testutil.FakePlatform) *Router {
	return NewRouter(RouterDependencies{Tickets: tickets, Platform: fake, Guilds: testGuilds})
}

func button(id string, member auth.Member) Interaction {
	return Interaction{Kind: KindButton, CustomID: id, GuildID: "g", ChannelID: "c", Member: member}
}

func TestHandleInteraction_Open(t *testing.T) {
	tickets := &mockTickets{}
	tickets.On("Open", mock.Anything, service.OpenInput{GuildID: "g", Actor: outsider, Type: domain.TicketTypePartnership}).
		Return(&service.OpenResult{Channel: &platform.Channel{ID: "new-chan"}}, nil)
	resp := &recordedResponder{}

	err := newRouter(tickets, testutil.NewFakePlatform()).HandleInteraction(context.Background(), button(service.ButtonOpenPartnership, outsider), resp)
	require.NoError(t, err)
	assert.True(t, resp.deferred)
	assert.Equal(t, []string{"Your ticket has been created: <#new-chan>"}, resp.followUps)
	tickets.AssertExpectations(t)
}

func TestHandleInteraction_ErrorsAreEphemeral(t *testing.T) {
	tickets := &mockTickets{}
	tickets.On("Claim", mock.Anything, mock.Anything).
		Return(apperrors.NewConflict("this ticket was already claimed by <@1>", nil)).Once()
	tickets.On("Claim", mock.Anything, mock.Anything).
		Return(apperrors.NewInternalError(errors.New("pg down"))).Once()
	router := newRouter(tickets, testutil.NewFakePlatform())

	resp := &recordedResponder{}
	require.NoError(t, router.HandleInteraction(context.Background(), button(service.ButtonClaim, staff), resp))
	require.NoError(t, router.HandleInteraction(context.Background(), button(service.ButtonClaim, staff), resp))

	assert.Equal(t, []string{
		"this ticket was already claimed by <@1>",
		"something went wrong, please try again later",
	}, resp.replies)
}

func TestHandleInteraction_CloseWithReason(t *testing.T) {
	tickets := &mockTickets{}
	router := newRouter(tickets, testutil.NewFakePlatform())

	resp := &recordedResponder{}
	require.NoError(t, router.HandleInteraction(context.Background(), button(service.ButtonCloseWithReason, staff), resp))
	require.Len(t, resp.modals, 1)
	assert.Equal(t, service.ModalCloseReason, resp.modals[0].CustomID)

	tickets.On("Close", mock.Anything, mock.MatchedBy(func(in service.CloseInput) bool {
		return in.GuildID == "g" && in.ChannelID == "c" && in.Actor.UserID == staff.UserID &&
			in.Reason == "spam" && in.OnClosing != nil
	})).Run(runOnClosing).Return(nil)
	submit := Interaction{Kind: KindModal, CustomID: service.ModalCloseReason, GuildID: "g", ChannelID: "c", Member: staff,
		Fields: map[string]string{service.ModalFieldReason: "spam"}}

	resp = &recordedResponder{}
	require.NoError(t, router.HandleInteraction(context.Background(), submit, resp))
	assert.True(t, resp.deferred)
	assert.Equal(t, []string{"Ticket closed. This channel will be deleted in 5 seconds."}, resp.followUps)
	tickets.AssertExpectations(t)
}

func TestHandleInteraction_CloseRequestAnswers(t *testing.T) {
	tickets := &mockTickets{}
	tickets.On("ResolveCloseRequest", mock.Anything, mock.Anything, true).Run(runOnClosing).Return(nil)
	tickets.On("ResolveCloseRequest", mock.Anything, mock.MatchedBy(func(in service.ActionInput) bool {
		return in.OnClosing == nil
	}), false).Return(nil)
	router := newRouter(tickets, testutil.NewFakePlatform())

	resp := &recordedResponder{}
	require.NoError(t, router.HandleInteraction(context.Background(), button(service.ButtonAcceptClose, outsider), resp))
	assert.Equal(t, []string{"Ticket closed. This channel will be deleted in 5 seconds."}, resp.followUps)

	resp = &recordedResponder{}
	require.NoError(t, router.HandleInteraction(context.Background(), button(service.ButtonRejectClose, outsider), resp))
	assert.Equal(t, []string{"You rejected the close request."}, resp.followUps)
	tickets.AssertExpectations(t)
}

func TestHandleInteraction_Description(t *testing.T) {
	tickets := &mockTickets{}
	tickets.On("SubmitDescription", mock.Anything, mock.Anything, "we are big").Return(nil)
	router := newRouter(tickets, testutil.NewFakePlatform())

	resp := &recordedResponder{}
	require.NoError(t, router.HandleInteraction(context.Background(), button(service.ButtonDescription, outsider), resp))
	require.Len(t, resp.modals, 1)
	assert.Equal(t, service.ModalDescription, resp.modals[0].CustomID)

	submit := Interaction{Kind: KindModal, CustomID: service.ModalDescription, GuildID: "g", ChannelID: "c", Member: outsider,
		Fields: map[string]string{service.ModalFieldDescription: "we are big"}}
	require.NoError(t, router.HandleInteraction(context.Background(), submit, resp))
	assert.Equal(t, []string{"Thanks, your description was submitted."}, resp.replies)
}

func TestHandleInteraction_IgnoresForeignIDs(t *testing.T) {
	tickets := &mockTickets{}
	resp := &recordedResponder{}

	require.NoError(t, newRouter(tickets, testutil.NewFakePlatform()).HandleInteraction(context.Background(), button("captcha_verify", staff), resp))
	assert.False(t, resp.deferred)
	assert.Empty(t, resp.replies)
	tickets.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
}

func TestHandleMessage(t *testing.T) {
	ctx := context.Background()
	action := service.ActionInput{GuildID: "g", ChannelID: "c", Actor: staff}
	msg := func(member auth.Member, content string) Message {
		return Message{GuildID: "g", ChannelID: "c", Member: member, Content: content}
	}

	t.Run("requires command role", func(t *testing.T) {
		tickets := &mockTickets{}
		fake := testutil.NewFakePlatform()
		require.NoError(t, newRouter(tickets, fake).HandleMessage(ctx, msg(outsider, "-ticket claim")))

		sent := fake.SentTo("c")
		require.Len(t, sent, 1)
		assert.Equal(t, "You are not allowed to use ticket commands.", sent[0].Msg.Content)
		tickets.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything)
	})

	t.Run("ignores other messages", func(t *testing.T) {
		fake := testutil.NewFakePlatform()
		router := newRouter(&mockTickets{}, fake)
		require.NoError(t, router.HandleMessage(ctx, msg(staff, "hello")))
		bot := msg(staff, "-ticket claim")
		bot.AuthorBot = true
		require.NoError(t, router.HandleMessage(ctx, bot))
		assert.Empty(t, fake.Sent)
	})

	t.Run("add member", func(t *testing.T) {
		tickets := &mockTickets{}
		tickets.On("AddMember", mock.Anything, service.MemberInput{ActionInput: action, TargetID: "555"}).Return(nil)
		fake := testutil.NewFakePlatform()

		require.NoError(t, newRouter(tickets, fake).HandleMessage(ctx, msg(staff, "-ticket add <@!555>")))
		assert.Equal(t, "<@555> was added to the ticket.", fake.SentTo("c")[0].Msg.Content)
		tickets.AssertExpectations(t)
	})

	t.Run("close with reason", func(t *testing.T) {
		tickets := &mockTickets{}
		tickets.On("Close", mock.Anything, service.CloseInput{ActionInput: action, Reason: "user left"}).Return(nil)
		fake := testutil.NewFakePlatform()

		require.NoError(t, newRouter(tickets, fake).HandleMessage(ctx, msg(staff, "-ticket close user left")))
		assert.Empty(t, fake.Sent, "the closed channel gets no reply")
		tickets.AssertExpectations(t)
	})

	t.Run("close outside a ticket", func(t *testing.T) {
		tickets := &mockTickets{}
		tickets.On("Close", mock.Anything, mock.Anything).
			Return(apperrors.NewConflict("there is no open ticket in this channel", nil))
		fake := testutil.NewFakePlatform()

		require.NoError(t, newRouter(tickets, fake).HandleMessage(ctx, msg(staff, "-ticket close")))
		assert.Equal(t, "there is no open ticket in this channel", fake.SentTo("c")[0].Msg.Content)
	})

	t.Run("admin may rename", func(t *testing.T) {
		tickets := &mockTickets{}
		adminAction := service.ActionInput{GuildID: "g", ChannelID: "c", Actor: admin}
		tickets.On("Rename", mock.Anything, adminAction, "billing issue").Return(nil)
		fake := testutil.NewFakePlatform()

		require.NoError(t, newRouter(tickets, fake).HandleMessage(ctx, msg(admin, "-ticket rename billing issue")))
		assert.Equal(t, "Ticket renamed.", fake.SentTo("c")[0].Msg.Content)
		tickets.AssertExpectations(t)
	})

	t.Run("history", func(t *testing.T) {
		tickets := &mockTickets{}
		claimer := "100"
		tickets.On("History", mock.Anything, service.MemberInput{ActionInput: action, TargetID: "555"}).Return([]domain.Ticket{
			{ChannelID: "c2", Type: domain.TicketTypeSupport, Open: true, ClaimedBy: &claimer,
				CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)},
			{ChannelID: "c1", Type: domain.TicketTypeHigh, CloseReason: "fixed",
				CreatedAt: time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)},
		}, nil)
		tickets.On("History", mock.Anything, service.MemberInput{ActionInput: action, TargetID: "777"}).Return(nil, nil)
		fake := testutil.NewFakePlatform()
		router := newRouter(tickets, fake)

		require.NoError(t, router.HandleMessage(ctx, msg(staff, "-ticket history <@555>")))
		require.NoError(t, router.HandleMessage(ctx, msg(staff, "-ticket history 777")))
		sent := fake.SentTo("c")
		require.Len(t, sent, 2)
		assert.Equal(t, "Recent tickets of <@555>:\n"+
			"- support <#c2> CLAIMED, opened 2026-03-02\n"+
			"- high <#c1> CLOSED, opened 2026-01-05 (fixed)", sent[0].Msg.Content)
		assert.Equal(t, "<@777> has no tickets.", sent[1].Msg.Content)
		tickets.AssertExpectations(t)
	})

	t.Run("usage", func(t *testing.T) {
		fake := testutil.NewFakePlatform()
		router := newRouter(&mockTickets{}, fake)

		require.NoError(t, router.HandleMessage(ctx, msg(staff, "-ticket dance")))
		require.NoError(t, router.HandleMessage(ctx, msg(staff, "-ticket add bob")))
		sent := fake.SentTo("c")
		require.Len(t, sent, 2)
		assert.Contains(t, sent[0].Msg.Content, "usage:")
		assert.Equal(t, "usage: `-ticket add @user`", sent[1].Msg.Content)
	})
}
