// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package background runs fire-and-forget side effects (cache writes,
// audit records, correction inserts) off the request path. Task failures
// are logged and counted but never surface to the caller.
package background

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config bounds the queue.
type Config struct {
	// MaxConcurrency caps tasks running at once. Default: 4.
	MaxConcurrency int `yaml:"max_concurrency"`
	// TaskTimeout bounds each task's context. Default: 10s.
	TaskTimeout time.Duration `yaml:"task_timeout"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 4,
		TaskTimeout:    10 * time.Second,
	}
}

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("background: queue closed")

// Task is a named unit of background work.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Queue runs tasks with bounded concurrency, each under its own timeout
// and detached from the submitting request's context. Safe for
// concurrent use.
type Queue struct {
	cfg   Config
	slots chan struct{}
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool

	failures atomic.Int64
}

// NewQueue builds a Queue, clamping nonsense config to the defaults.
func NewQueue(cfg Config) *Queue {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultConfig().MaxConcurrency
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultConfig().TaskTimeout
	}
	return &Queue{
		cfg:   cfg,
		slots: make(chan struct{}, cfg.MaxConcurrency),
	}
}

// Submit schedules the task and returns immediately. The task runs under
// a fresh context so request cancellation never aborts a side effect that
// was already decided. Errors are logged, not returned.
func (q *Queue) Submit(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("background: task %q has no Run func", task.Name)
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()

	go func() {
		defer q.wg.Done()
		q.slots <- struct{}{}
		defer func() { <-q.slots }()

		ctx, cancel := context.WithTimeout(context.Background(), q.cfg.TaskTimeout)
		defer cancel()

		start := time.Now()
		if err := q.runGuarded(ctx, task); err != nil {
			q.failures.Add(1)
			slog.Warn("Background task failed",
				"task", task.Name,
				"duration", time.Since(start),
				"error", err)
			return
		}
		slog.Debug("Background task complete", "task", task.Name, "duration", time.Since(start))
	}()
	return nil
}

// runGuarded converts a panicking task into an error so one bad side
// effect cannot take the process down.
func (q *Queue) runGuarded(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Run(ctx)
}

// Close stops accepting tasks and waits for in-flight ones to drain, up
// to the context deadline.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background: drain interrupted: %w", ctx.Err())
	}
}

// Failures reports how many tasks have errored since startup.
func (q *Queue) Failures() int64 {
	return q.failures.Load()
}
