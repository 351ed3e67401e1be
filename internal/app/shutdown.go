// internal/app/shutdown.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Closer is a service that is stopped on shutdown.
type Closer interface {
	Close(ctx context.Context) error
}

// CloseFunc allows using a function as a Closer
type CloseFunc func(ctx context.Context) error

func (f CloseFunc) Close(ctx context.Context) error {
	return f(ctx)
}

// ShutdownHandler stops registered services in reverse registration order.
type ShutdownHandler struct {
	logger   *zap.Logger
	services []namedService
	mu       sync.Mutex
	timeout  time.Duration
	done     bool
}

type namedService struct {
	name   string
	closer Closer
}

// NewShutdownHandler creates a new shutdown handler
func NewShutdownHandler(logger *zap.Logger, timeout time.Duration) *ShutdownHandler {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownHandler{
		logger:  logger.Named("shutdown"),
		timeout: timeout,
	}
}

// Add registers a service for shutdown
func (sh *ShutdownHandler) Add(name string, closer Closer) {
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.services = append(sh.services, namedService{name: name, closer: closer})
	sh.logger.Debug("Registered service for shutdown", zap.String("service", name))
}

// AddFunc registers a shutdown function
func (sh *ShutdownHandler) AddFunc(name string, fn func(ctx context.Context) error) {
	sh.Add(name, CloseFunc(fn))
}

// Shutdown closes every service once, newest first, within the handler timeout. Errors
// are collected and the remaining services are still closed.
func (sh *ShutdownHandler) Shutdown(ctx context.Context) error {
	sh.mu.Lock()
	if sh.done {
		sh.mu.Unlock()
		return nil
	}
	sh.done = true
	services := sh.services
	sh.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, sh.timeout)
	defer cancel()

	var errs []error
	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		start := time.Now()
		if err := svc.closer.Close(ctx); err != nil {
			sh.logger.Error("Failed to close service", zap.String("service", svc.name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", svc.name, err))
			continue
		}
		sh.logger.Debug("Service closed",
			zap.String("service", svc.name),
			zap.Duration("duration", time.Since(start)))
	}
	return errors.Join(errs...)
}
