// Copyright (C) 2026 Lost London Labs (engineering@lostlondon.org)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package background

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_RunsSubmittedTasks(t *testing.T) {
	q := NewQueue(DefaultConfig())

	var ran atomic.Int64
	for i := 0; i < 10; i++ {
		err := q.Submit(Task{Name: "count", Run: func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}})
		require.NoError(t, err)
	}

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int64(10), ran.Load())
	assert.Equal(t, int64(0), q.Failures())
}

func TestQueue_BoundsConcurrency(t *testing.T) {
	q := NewQueue(Config{MaxConcurrency: 2, TaskTimeout: time.Second})

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		err := q.Submit(Task{Name: "probe", Run: func(ctx context.Context) error {
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(20 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			return nil
		}})
		require.NoError(t, err)
	}

	require.NoError(t, q.Close(context.Background()))
	assert.LessOrEqual(t, maxSeen, 2)
	assert.Greater(t, maxSeen, 0)
}

func TestQueue_FailuresCountedNotPropagated(t *testing.T) {
	q := NewQueue(DefaultConfig())

	err := q.Submit(Task{Name: "boom", Run: func(ctx context.Context) error {
		return errors.New("persistence failed")
	}})
	require.NoError(t, err)

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int64(1), q.Failures())
}

func TestQueue_RecoverFromPanic(t *testing.T) {
	q := NewQueue(DefaultConfig())

	err := q.Submit(Task{Name: "panic", Run: func(ctx context.Context) error {
		panic("should not escape")
	}})
	require.NoError(t, err)

	require.NoError(t, q.Close(context.Background()))
	assert.Equal(t, int64(1), q.Failures())
}

func TestQueue_TaskTimeout(t *testing.T) {
	q := NewQueue(Config{MaxConcurrency: 1, TaskTimeout: 20 * time.Millisecond})

	var sawDeadline atomic.Bool
	err := q.Submit(Task{Name: "slow", Run: func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			sawDeadline.Store(true)
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}})
	require.NoError(t, err)

	require.NoError(t, q.Close(context.Background()))
	assert.True(t, sawDeadline.Load())
	assert.Equal(t, int64(1), q.Failures())
}

func TestQueue_SubmitAfterClose(t *testing.T) {
	q := NewQueue(DefaultConfig())
	require.NoError(t, q.Close(context.Background()))

	err := q.Submit(Task{Name: "late", Run: func(ctx context.Context) error { return nil }})
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueue_RejectsNilRun(t *testing.T) {
	q := NewQueue(DefaultConfig())
	assert.Error(t, q.Submit(Task{Name: "empty"}))
}
