package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryDispatcher(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string

	d.Subscribe(EventTicketClaimed, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return errors.New("boom")
	})
	d.Subscribe(EventTicketClaimed, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketClaimed, TicketID: "t1"})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first:t1", "second:t1"}, got, "a failing handler does not stop the others")

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketClosed, TicketID: "t2"}))
	assert.Len(t, got, 2)
}
