package rosterdb

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/jferreira/maitrenotifie/core/roster"
)

// redisRepository keeps the serialized roster under a single fixed key,
// mirroring the file layout. Meant for deployments where the data dir
// is not durable.
type redisRepository struct {
	client *redis.Client
	key    string
}

var _ roster.Repository = (*redisRepository)(nil)

func NewRedisRepository(client *redis.Client, key string) roster.Repository {
	return &redisRepository{client: client, key: key}
}

func (repo *redisRepository) LoadRoster(ctx context.Context) (roster.Roster, error) {
	data, err := repo.client.Get(ctx, repo.key).Bytes()
	if err == redis.Nil {
		return roster.Seed(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "reading roster key")
	}

	var r roster.Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "decoding roster key")
	}
	return r, nil
}

func (repo *redisRepository) SaveRoster(ctx context.Context, r roster.Roster) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding roster")
	}
	return errors.Wrap(repo.client.Set(ctx, repo.key, data, 0).Err(), "writing roster key")
}
