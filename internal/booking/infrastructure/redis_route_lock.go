package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
	"github.com/mateusmacedo/go-busbooking/pkg/application"
	pkgDomain "github.com/mateusmacedo/go-busbooking/pkg/domain"
)

// releaseScript só apaga a chave se ela ainda pertence a quem a criou.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// redisRouteLocker é o árbitro de escrita única por rota entre várias instâncias.
type redisRouteLocker struct {
	client      redis.UniversalClient
	ttl         time.Duration
	pollEvery   time.Duration
	idGenerator pkgDomain.IDGenerator[string]
	logger      application.AppLogger
}

func NewRedisRouteLocker(client redis.UniversalClient, ttl time.Duration, idGenerator pkgDomain.IDGenerator[string], logger application.AppLogger) domain.RouteLocker {
	return &redisRouteLocker{
		client:      client,
		ttl:         ttl,
		pollEvery:   25 * time.Millisecond,
		idGenerator: idGenerator,
		logger:      logger,
	}
}

func routeLockKey(routeID string) string {
	return "busbooking:route-lock:" + routeID
}

func (l *redisRouteLocker) Lock(ctx context.Context, routeID string) (func(), error) {
	key := routeLockKey(routeID)
	token := l.idGenerator()

	ticker := time.NewTicker(l.pollEvery)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// o ctx da escrita pode já ter expirado; o lock precisa ser liberado mesmo assim
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			application.LogError(ctx, l.logger, "failed to release route lock", err, map[string]interface{}{"route_id": routeID})
		}
	}, nil
}
