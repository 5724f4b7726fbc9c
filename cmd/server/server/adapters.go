package server

import (
	"context"

	"github.com/sageql/sage/pkg/infrastructure/pool"
)

// poolPinger adapts the connection pool's health check to the handlers'
// liveness probe.
type poolPinger struct {
	pool pool.ConnectionPool
}

func (p poolPinger) Ping(ctx context.Context) error {
	return p.pool.HealthCheck(ctx)
}
