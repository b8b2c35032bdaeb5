package allocator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/cache"
	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// ErrNoCategory is returned when no category could be found or created.
var ErrNoCategory = errors.New("no ticket category available")

// Allocator finds or creates a category with spare capacity.
type Allocator struct {
	client   platform.Client
	cache    cache.CategoryCache
	logger   *zap.Logger
	capacity int
	naming   Naming
}

// Options configures an Allocator.
type Options struct {
	Capacity int
	Naming   Naming
}

// New constructs an Allocator.
func New(client platform.Client, categoryCache cache.CategoryCache, logger *zap.Logger, opts Options) *Allocator {
	if opts.Capacity <= 0 {
		opts.Capacity = 50
	}
	if opts.Naming.Canonical == "" {
		opts.Naming.Canonical = DefaultNaming.Canonical
	}
	if opts.Naming.Keyword == "" {
		opts.Naming.Keyword = DefaultNaming.Keyword
	}
	if opts.Naming.MaxOverflow < 2 {
		opts.Naming.MaxOverflow = DefaultNaming.MaxOverflow
	}
	return &Allocator{
		client:   client,
		cache:    categoryCache,
		logger:   logger,
		capacity: opts.Capacity,
		naming:   opts.Naming,
	}
}

// Acquire returns a category that can take one more channel. On any platform
// failure it returns ErrNoCategory and leaves the cache untouched.
func (a *Allocator) Acquire(ctx context.Context, guildID string) (*domain.Category, error) {
	snapshot, err := a.client.Categories(ctx, guildID)
	if err != nil {
		a.logger.Error("list categories failed", zap.String("guild_id", guildID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoCategory, err)
	}

	choice := Allocate(snapshot, a.capacity, a.cache.Get(ctx, guildID), a.naming)
	category, err := a.apply(ctx, guildID, snapshot, choice)
	if err != nil {
		a.logger.Error("allocate category failed",
			zap.String("guild_id", guildID),
			zap.Stringer("action", choice.Action),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoCategory, err)
	}

	a.cache.Set(ctx, guildID, category.ID)
	return category, nil
}

func (a *Allocator) apply(ctx context.Context, guildID string, snapshot []domain.Category, choice Choice) (*domain.Category, error) {
	switch choice.Action {
	case ActionUse:
		return find(snapshot, choice.CategoryID), nil
	case ActionRename:
		if err := a.client.RenameChannel(ctx, choice.CategoryID, choice.Name); err != nil {
			return nil, err
		}
		category := find(snapshot, choice.CategoryID)
		category.Name = choice.Name
		return category, nil
	case ActionCreate:
		// The @everyone role shares the guild id.
		overwrites := []platform.Overwrite{{
			ID:   guildID,
			Type: platform.OverwriteRole,
			Deny: platform.PermissionViewChannel,
		}}
		category, err := a.client.CreateCategory(ctx, guildID, choice.Name, overwrites)
		if err != nil {
			return nil, err
		}
		a.logger.Info("created ticket category",
			zap.String("guild_id", guildID),
			zap.String("category_id", category.ID),
			zap.String("name", category.Name))
		return category, nil
	default:
		return nil, errors.New("overflow category names exhausted")
	}
}

func find(snapshot []domain.Category, id string) *domain.Category {
	for i := range snapshot {
		if snapshot[i].ID == id {
			c := snapshot[i]
			return &c
		}
	}
	return &domain.Category{ID: id}
}
