// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Job is the completed state of a submitted ingestion request.
type Job struct {
	ID      string
	Request IngestRequest
	Report  *Report
	Err     error
}

// Callback receives a Job once its run has finished, successfully or not.
type Callback func(Job)

// Queue runs ingestion requests in the background. Jobs are not tied to
// the context of the caller that submitted them.
type Queue struct {
	pipeline *Pipeline
	pool     *ants.Pool
	timeout  time.Duration
	wg       sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	logger   *slog.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue) error

// WithQueueWorkers sets how many ingestion runs may execute at once.
// Default is 1.
func WithQueueWorkers(n int) QueueOption {
	return func(q *Queue) error {
		if n < 1 {
			n = 1
		}
		if q.pool != nil {
			q.pool.Release()
		}
		pool, err := ants.NewPool(n)
		if err != nil {
			return err
		}
		q.pool = pool
		return nil
	}
}

// WithJobTimeout bounds each run. Zero means no timeout.
func WithJobTimeout(d time.Duration) QueueOption {
	return func(q *Queue) error {
		q.timeout = d
		return nil
	}
}

// WithQueueLogger sets a custom logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *Queue) error {
		if logger == nil {
			logger = slog.Default()
		}
		q.logger = logger
		return nil
	}
}

// NewQueue creates a Queue that runs jobs on pipeline.
func NewQueue(pipeline *Pipeline, opts ...QueueOption) (*Queue, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}

	q := &Queue{
		pipeline: pipeline,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(q); err != nil {
			q.Release()
			return nil, err
		}
	}
	if q.pool == nil {
		pool, err := ants.NewPool(1)
		if err != nil {
			return nil, err
		}
		q.pool = pool
	}
	q.logger = q.logger.With("component", "ingestion-queue")
	return q, nil
}

// Submit schedules req and returns its job ID. callback may be nil.
func (q *Queue) Submit(req IngestRequest, callback Callback) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()

	id := uuid.NewString()
	err := q.pool.Submit(func() {
		defer q.wg.Done()
		job := q.run(id, req)
		if callback != nil {
			callback(job)
		}
	})
	if err != nil {
		q.wg.Done()
		if errors.Is(err, ants.ErrPoolClosed) {
			return "", ErrQueueClosed
		}
		return "", err
	}

	q.logger.Info("ingestion job submitted", "job", id, "persona", req.PersonaName)
	return id, nil
}

func (q *Queue) run(id string, req IngestRequest) Job {
	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}

	report, err := q.pipeline.Ingest(ctx, req)
	if err != nil {
		q.logger.Error("ingestion job failed", "job", id, "persona", req.PersonaName, "err", err)
	} else {
		q.logger.Info("ingestion job finished", "job", id, "persona", req.PersonaName)
	}
	return Job{ID: id, Request: req, Report: report, Err: err}
}

// Wait blocks until every submitted job has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Release stops accepting jobs, waits for running ones and frees the pool.
// The pipeline is not released.
func (q *Queue) Release() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.wg.Wait()
	if q.pool != nil {
		q.pool.Release()
	}
}
