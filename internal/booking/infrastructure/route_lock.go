package infrastructure

import (
	"context"
	"sync"

	"github.com/mateusmacedo/go-busbooking/internal/booking/domain"
)

type routeMutex struct {
	ch   chan struct{}
	refs int
}

// localRouteLocker é um mutex por rota, válido dentro de um único processo.
type localRouteLocker struct {
	mu    sync.Mutex
	locks map[string]*routeMutex
}

func NewLocalRouteLocker() domain.RouteLocker {
	return &localRouteLocker{locks: make(map[string]*routeMutex)}
}

func (l *localRouteLocker) Lock(ctx context.Context, routeID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.locks[routeID]
	if !ok {
		m = &routeMutex{ch: make(chan struct{}, 1)}
		l.locks[routeID] = m
	}
	m.refs++
	l.mu.Unlock()

	select {
	case m.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(routeID, m)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-m.ch
			l.release(routeID, m)
		})
	}, nil
}

func (l *localRouteLocker) release(routeID string, m *routeMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(l.locks, routeID)
	}
}
