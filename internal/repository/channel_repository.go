package repository

import (
	"context"
	"time"

	"channelmirror/internal/domain/entity"
)

type ChannelRepository interface {
	Get(ctx context.Context, id string) (*entity.Channel, error)
	GetBySourceURL(ctx context.Context, sourceURL string) (*entity.Channel, error)
	List(ctx context.Context) ([]*entity.Channel, error)
	ListEnabled(ctx context.Context) ([]*entity.Channel, error)
	Create(ctx context.Context, channel *entity.Channel) error
	Update(ctx context.Context, channel *entity.Channel) error
	Delete(ctx context.Context, id string) error
	TouchRefreshedAt(ctx context.Context, id string, refreshedAt time.Time) error
}
