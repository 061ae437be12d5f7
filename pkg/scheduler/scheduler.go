// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by Start on a running scheduler
var ErrAlreadyRunning = errors.New("scheduler already running")

// Task is the work run on every tick
type Task func(ctx context.Context) error

// Scheduler runs a single task on a fixed interval
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	logger   *zap.Logger

	// OnFailure is called with every tick error, including recovered panics
	OnFailure func(err error)

	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	lastTick time.Time
}

// NewScheduler creates a new scheduler
func NewScheduler(name string, interval time.Duration, task Task, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		logger:   logger.With(zap.String("scheduler", name)),
	}
}

// Start begins the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != nil {
		return ErrAlreadyRunning
	}
	if s.interval <= 0 {
		return fmt.Errorf("invalid interval for scheduler %s: %s", s.name, s.interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopChan := make(chan struct{})
	done := make(chan struct{})
	s.stopChan, s.done, s.cancel = stopChan, done, cancel

	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.runOnce(ctx)
			case <-stopChan:
				return
			}
		}
	}()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop stops the scheduler and waits for an in-flight tick to finish.
// Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	stopChan, done, cancel := s.stopChan, s.done, s.cancel
	s.stopChan, s.done, s.cancel = nil, nil, nil
	s.mu.Unlock()

	if stopChan == nil {
		return
	}
	close(stopChan)
	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// Running reports whether the scheduler is started
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopChan != nil
}

// LastTick returns when the last tick started, zero if none has run
func (s *Scheduler) LastTick() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTick
}

// Interval returns the tick interval
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// runOnce executes the task; failures and panics are reported and never stop the loop
func (s *Scheduler) runOnce(ctx context.Context) {
	s.mu.Lock()
	s.lastTick = time.Now()
	s.mu.Unlock()

	err := s.safeRun(ctx)
	if err == nil {
		return
	}

	s.logger.Error("scheduled task failed", zap.Error(err))
	if s.OnFailure != nil {
		s.OnFailure(err)
	}
}

func (s *Scheduler) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in scheduled task: %v", r)
		}
	}()
	return s.task(ctx)
}
