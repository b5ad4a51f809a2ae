// Copyright 2026 The Courier Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/courier-foundation/courier/lib/clock"
)

// UpdateSource is the one capability the Poller needs from a Bot.
// Tests substitute scripted sources; anything with a conforming
// GetUpdates works.
type UpdateSource interface {
	GetUpdates(ctx context.Context, request GetUpdatesRequest) ([]Update, error)
}

var _ UpdateSource = (*Bot)(nil)

// PollerConfig holds configuration for creating a Poller.
type PollerConfig struct {
	// Source supplies update batches. Required.
	Source UpdateSource
	// Offset is the resume cursor: the first update_id to request.
	// Zero starts from the server's unconfirmed backlog.
	Offset int64
	// Limit caps updates per batch, 1-100. Zero uses the server
	// default.
	Limit int
	// Timeout is the server-side long-poll hold. Zero means 50
	// seconds. Must be at least one second: the hold is what makes
	// an empty-backlog loop idle instead of hot.
	Timeout time.Duration
	// AllowedUpdates restricts delivered update kinds. Nil keeps the
	// server's previous setting.
	AllowedUpdates []string
	// RetryFallback is the first retry delay when the server supplies
	// no retry_after hint. Zero means 3 seconds.
	RetryFallback time.Duration
	// MaxRetryDelay caps the exponential backoff between retries.
	// Zero means 30 seconds.
	MaxRetryDelay time.Duration
	// Buffer is the update channel capacity. Zero means 16.
	Buffer int
	// Clock abstracts retry sleeps for tests. Nil means the real
	// clock.
	Clock clock.Clock
	// Logger is used for structured logging. If nil, slog.Default()
	// is used.
	Logger *slog.Logger
}

// Poller drives the getUpdates long-poll loop, turning the stateless
// request/response API into a continuous ordered update stream.
//
// The loop alternates between two states: idle (between requests) and
// polling (one long poll outstanding). A successful non-empty batch
// advances the offset cursor past the batch and delivers each update
// in arrival order on the Updates channel. An empty batch re-polls
// immediately; the long-poll hold already provided the idle time.
// Recoverable failures (network errors, undecodable responses, rate
// limiting, server-side 5xx) retry without advancing the offset,
// sleeping for the server's retry_after hint when present and an
// exponential backoff schedule otherwise. Fatal failures (any other
// API rejection, such as 401 for a revoked token) halt the loop.
//
// A Poller is single-use: create, Run, done.
type Poller struct {
	source         UpdateSource
	limit          int
	timeoutSeconds int
	allowedUpdates []string
	retryFallback  time.Duration
	maxRetryDelay  time.Duration
	clk            clock.Clock
	logger         *slog.Logger

	offset  atomic.Int64
	updates chan Update
	started atomic.Bool

	mu  sync.Mutex
	err error
}

// NewPoller creates a Poller. Run must be called to start polling.
func NewPoller(config PollerConfig) (*Poller, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("botapi: PollerConfig.Source is required")
	}
	if config.Limit < 0 || config.Limit > 100 {
		return nil, fmt.Errorf("botapi: PollerConfig.Limit must be 0-100, got %d", config.Limit)
	}
	if config.Timeout != 0 && config.Timeout < time.Second {
		return nil, fmt.Errorf("botapi: PollerConfig.Timeout must be at least a second, got %s", config.Timeout)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 50 * time.Second
	}
	retryFallback := config.RetryFallback
	if retryFallback == 0 {
		retryFallback = 3 * time.Second
	}
	maxRetryDelay := config.MaxRetryDelay
	if maxRetryDelay == 0 {
		maxRetryDelay = 30 * time.Second
	}
	buffer := config.Buffer
	if buffer == 0 {
		buffer = 16
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Poller{
		source:         config.Source,
		limit:          config.Limit,
		timeoutSeconds: int(timeout / time.Second),
		allowedUpdates: config.AllowedUpdates,
		retryFallback:  retryFallback,
		maxRetryDelay:  maxRetryDelay,
		clk:            clk,
		logger:         logger,
		updates:        make(chan Update, buffer),
	}
	p.offset.Store(config.Offset)
	return p, nil
}

// Updates returns the channel updates are delivered on. Closed when
// the loop halts, after which Err reports why.
func (p *Poller) Updates() <-chan Update {
	return p.updates
}

// Offset returns the current resume cursor: one past the highest
// update_id of the last fully decoded batch. Persist it (lib/cursor)
// to resume after a restart without re-delivery. Safe to call from
// any goroutine while Run is polling.
func (p *Poller) Offset() int64 {
	return p.offset.Load()
}

// Err returns the terminal error after the Updates channel closes.
// Nil after clean cancellation.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Run polls until ctx is cancelled or a fatal error occurs, delivering
// updates on the Updates channel. Blocks; run it in its own goroutine
// and range over Updates. Returns nil on clean cancellation, the fatal
// error otherwise. Closes the Updates channel on return.
func (p *Poller) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return fmt.Errorf("botapi: poller already started")
	}
	defer close(p.updates)

	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = p.retryFallback
	schedule.MaxInterval = p.maxRetryDelay
	// Retries continue until cancelled or a fatal error halts the
	// loop; elapsed time never gives up on its own.
	schedule.MaxElapsedTime = 0
	schedule.Clock = p.clk
	schedule.Reset()

	var retries int
	for {
		if ctx.Err() != nil {
			return p.finish(nil)
		}

		batch, err := p.source.GetUpdates(ctx, GetUpdatesRequest{
			Offset:         p.offset.Load(),
			Limit:          p.limit,
			Timeout:        p.timeoutSeconds,
			AllowedUpdates: p.allowedUpdates,
		})
		if err != nil {
			if ctx.Err() != nil {
				return p.finish(nil)
			}
			if !recoverable(err) {
				p.logger.Error("update poll hit fatal error", "error", err)
				return p.finish(err)
			}
			retries++

			// TCP-level errors often indicate a poisoned connection in
			// the HTTP pool. Drop idle connections so the next attempt
			// opens a fresh socket.
			var transportErr *TransportError
			if errors.As(err, &transportErr) {
				if closer, ok := p.source.(interface{ CloseIdleConnections() }); ok {
					closer.CloseIdleConnections()
				}
			}

			delay, hinted := RetryDelay(err)
			if !hinted {
				delay = schedule.NextBackOff()
			}
			p.logger.Warn("update poll failed, retrying",
				"attempt", retries,
				"delay", delay,
				"offset", p.offset.Load(),
				"error", err,
			)
			select {
			case <-ctx.Done():
				return p.finish(nil)
			case <-p.clk.After(delay):
			}
			continue
		}
		retries = 0
		schedule.Reset()

		if len(batch) == 0 {
			// The hold elapsed with nothing new. Go straight back; the
			// next hold provides the idle time.
			continue
		}

		// The batch is fully decoded; confirm it to the server by
		// advancing the cursor past its highest id. Updates a restart
		// fails to deliver are dropped, never re-delivered.
		next := p.offset.Load()
		for _, update := range batch {
			if update.ID >= next {
				next = update.ID + 1
			}
		}
		p.offset.Store(next)

		p.logger.Debug("delivering update batch",
			"count", len(batch),
			"next_offset", next,
		)
		for _, update := range batch {
			select {
			case p.updates <- update:
			case <-ctx.Done():
				return p.finish(nil)
			}
		}
	}
}

func (p *Poller) finish(err error) error {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	return err
}

// recoverable classifies a poll failure. Server rejections are fatal
// unless they are rate limiting or server-side trouble: an invalid
// token or malformed request will not fix itself through retries.
// Everything else (network failures, undecodable responses) is
// assumed transient.
func recoverable(err error) bool {
	var encodingErr *EncodingError
	if errors.As(err, &encodingErr) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == ErrCodeTooManyRequests || apiErr.Code >= 500
	}
	return true
}
