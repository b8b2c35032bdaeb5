// Package allocator places new ticket channels into categories with spare capacity.
package allocator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

// Action is what Acquire must do to obtain a category.
type Action int

const (
	// ActionNone means no category can be used or created.
	ActionNone Action = iota
	ActionUse
	ActionRename
	ActionCreate
)

func (a Action) String() string {
	switch a {
	case ActionUse:
		return "use"
	case ActionRename:
		return "rename"
	case ActionCreate:
		return "create"
	default:
		return "none"
	}
}

// Choice is the outcome of Allocate. CategoryID is set for use and rename,
// Name for rename and create.
type Choice struct {
	Action     Action
	CategoryID string
	Name       string
}

// Naming describes the canonical category name and the keyword candidates must contain.
type Naming struct {
	Canonical   string
	Keyword     string
	MaxOverflow int
}

// DefaultNaming is used when the configuration leaves names empty.
var DefaultNaming = Naming{Canonical: "Tickets", Keyword: "ticket", MaxOverflow: 100}

// Normalize lowercases name and strips everything but letters and digits.
func Normalize(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// OverflowName returns the name of the n-th overflow category.
func (n Naming) OverflowName(suffix int) string {
	return fmt.Sprintf("%s %d", n.Canonical, suffix)
}

// IsCanonical reports whether name is the canonical name or one of its numbered overflows.
func (n Naming) IsCanonical(name string) bool {
	if name == n.Canonical {
		return true
	}
	rest, ok := strings.CutPrefix(name, n.Canonical+" ")
	if !ok {
		return false
	}
	suffix, err := strconv.Atoi(rest)
	return err == nil && suffix >= 2
}

func (n Naming) matches(name string) bool {
	return strings.Contains(Normalize(name), Normalize(n.Keyword))
}

// Allocate picks a category for one more ticket channel. It performs no I/O.
func Allocate(snapshot []domain.Category, limit int, cachedID string, naming Naming) Choice {
	hasRoom := func(c domain.Category) bool { return c.Children < limit }

	if cachedID != "" {
		for _, c := range snapshot {
			if c.ID == cachedID && naming.IsCanonical(c.Name) && hasRoom(c) {
				return Choice{Action: ActionUse, CategoryID: c.ID}
			}
		}
	}

	candidates := make([]domain.Category, 0, len(snapshot))
	for _, c := range snapshot {
		if naming.matches(c.Name) {
			candidates = append(candidates, c)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Position != candidates[j].Position {
			return candidates[i].Position < candidates[j].Position
		}
		return candidates[i].ID < candidates[j].ID
	})

	if len(candidates) == 0 {
		return Choice{Action: ActionCreate, Name: naming.Canonical}
	}

	for _, c := range candidates {
		if c.Name == naming.Canonical && hasRoom(c) {
			return Choice{Action: ActionUse, CategoryID: c.ID}
		}
	}

	first := candidates[0]
	if !naming.IsCanonical(first.Name) && hasRoom(first) && !nameTaken(snapshot, naming.Canonical) {
		return Choice{Action: ActionRename, CategoryID: first.ID, Name: naming.Canonical}
	}

	for _, c := range candidates {
		if hasRoom(c) {
			return Choice{Action: ActionUse, CategoryID: c.ID}
		}
	}

	for suffix := 2; suffix <= naming.MaxOverflow; suffix++ {
		name := naming.OverflowName(suffix)
		if !nameTaken(snapshot, name) {
			return Choice{Action: ActionCreate, Name: name}
		}
	}
	return Choice{Action: ActionNone}
}

func nameTaken(snapshot []domain.Category, name string) bool {
	for _, c := range snapshot {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}
