package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "tickets", Normalize("🎫 TICKETS"))
	assert.Equal(t, "supportticket2", Normalize("support-ticket #2"))
	assert.Equal(t, "", Normalize(" -- "))
}

func TestNaming_IsCanonical(t *testing.T) {
	n := DefaultNaming
	assert.True(t, n.IsCanonical("Tickets"))
	assert.True(t, n.IsCanonical("Tickets 7"))
	assert.False(t, n.IsCanonical("Tickets 1"))
	assert.False(t, n.IsCanonical("Tickets abc"))
	assert.False(t, n.IsCanonical("old tickets"))
}

func TestAllocate(t *testing.T) {
	const limit = 50
	tests := []struct {
		name     string
		snapshot []domain.Category
		cached   string
		want     Choice
	}{
		{
			name: "no categories creates canonical",
			want: Choice{Action: ActionCreate, Name: "Tickets"},
		},
		{
			name:     "unrelated categories are ignored",
			snapshot: []domain.Category{{ID: "1", Name: "General", Children: 3}},
			want:     Choice{Action: ActionCreate, Name: "Tickets"},
		},
		{
			name: "cached canonical with room wins",
			snapshot: []domain.Category{
				{ID: "1", Name: "Tickets", Position: 1, Children: 10},
				{ID: "2", Name: "Tickets 2", Position: 2, Children: 3},
			},
			cached: "2",
			want:   Choice{Action: ActionUse, CategoryID: "2"},
		},
		{
			name: "full cached category is skipped",
			snapshot: []domain.Category{
				{ID: "1", Name: "Tickets", Position: 1, Children: 10},
				{ID: "2", Name: "Tickets 2", Position: 2, Children: limit},
			},
			cached: "2",
			want:   Choice{Action: ActionUse, CategoryID: "1"},
		},
		{
			name: "cached category renamed away is skipped",
			snapshot: []domain.Category{
				{ID: "1", Name: "Tickets", Position: 1, Children: 10},
				{ID: "2", Name: "Archive", Position: 2},
			},
			cached: "2",
			want:   Choice{Action: ActionUse, CategoryID: "1"},
		},
		{
			name: "exact canonical preferred over earlier match",
			snapshot: []domain.Category{
				{ID: "1", Name: "old-tickets", Position: 0, Children: 1},
				{ID: "2", Name: "Tickets", Position: 3, Children: 1},
			},
			want: Choice{Action: ActionUse, CategoryID: "2"},
		},
		{
			name: "first match renamed when canonical is free",
			snapshot: []domain.Category{
				{ID: "5", Name: "🎫 ticket zone", Position: 2},
				{ID: "4", Name: "support tickets", Position: 4},
			},
			want: Choice{Action: ActionRename, CategoryID: "5", Name: "Tickets"},
		},
		{
			name: "ties on position break by id",
			snapshot: []domain.Category{
				{ID: "9", Name: "ticket b", Position: 1},
				{ID: "3", Name: "ticket a", Position: 1},
			},
			want: Choice{Action: ActionRename, CategoryID: "3", Name: "Tickets"},
		},
		{
			name: "no rename on name collision, first with room used",
			snapshot: []domain.Category{
				{ID: "1", Name: "ticket-old", Position: 0, Children: 4},
				{ID: "2", Name: "Tickets", Position: 1, Children: limit},
			},
			want: Choice{Action: ActionUse, CategoryID: "1"},
		},
		{
			name: "overflow not renamed back to canonical",
			snapshot: []domain.Category{
				{ID: "2", Name: "Tickets 2", Position: 0, Children: 1},
			},
			want: Choice{Action: ActionUse, CategoryID: "2"},
		},
		{
			name: "all full creates smallest unused suffix",
			snapshot: []domain.Category{
				{ID: "1", Name: "Tickets", Position: 0, Children: limit},
				{ID: "2", Name: "Tickets 2", Position: 1, Children: limit},
				{ID: "4", Name: "Tickets 4", Position: 2, Children: limit},
			},
			want: Choice{Action: ActionCreate, Name: "Tickets 3"},
		},
		{
			name: "single full canonical overflows to 2",
			snapshot: []domain.Category{
				{ID: "1", Name: "Tickets", Children: limit},
			},
			want: Choice{Action: ActionCreate, Name: "Tickets 2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Allocate(tt.snapshot, limit, tt.cached, DefaultNaming)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllocate_SuffixSpaceExhausted(t *testing.T) {
	naming := Naming{Canonical: "Tickets", Keyword: "ticket", MaxOverflow: 3}
	snapshot := []domain.Category{
		{ID: "1", Name: "Tickets", Children: 50},
		{ID: "2", Name: "Tickets 2", Children: 50},
		{ID: "3", Name: "Tickets 3", Children: 50},
	}
	assert.Equal(t, Choice{Action: ActionNone}, Allocate(snapshot, 50, "", naming))
}
