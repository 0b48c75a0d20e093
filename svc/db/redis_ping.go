package db

import (
	"context"

	"github.com/pkg/errors"
)

func (r *Redis) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return errors.Wrap(r.client.Ping(ctx).Err(), "redis ping")
}
