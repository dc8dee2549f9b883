// Package queue is a durable delayed job queue backed by sqlite. Jobs are
// immutable serialized records; delivery is at-least-once, delay is a floor
// on when a job becomes runnable, never a guarantee of exact timing.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Handler processes a job payload. A returned error means the delivery
// failed and the job is redelivered until its attempts are exhausted.
type Handler func(ctx context.Context, payload []byte) error

// Config tunes the queue runner
type Config struct {
	Workers      int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	Lease        time.Duration
}

func DefaultConfig() Config {
	return Config{
		Workers:      2,
		PollInterval: 250 * time.Millisecond,
		MaxAttempts:  3,
		RetryDelay:   5 * time.Second,
		Lease:        time.Minute,
	}
}

// Queue schedules and executes background jobs
type Queue struct {
	db       *sql.DB
	config   Config
	logger   *log.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func New(dbPath string, config Config) (*Queue, error) {
	if config.Workers <= 0 {
		config.Workers = DefaultConfig().Workers
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}
	if config.Lease <= 0 {
		config.Lease = DefaultConfig().Lease
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		payload TEXT NOT NULL,
		run_after INTEGER NOT NULL,
		reserved_until INTEGER,
		attempts INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_run_after ON jobs(run_after);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &Queue{
		db:       db,
		config:   config,
		logger:   log.New(os.Stdout, "[Queue] ", log.LstdFlags),
		handlers: make(map[string]Handler),
	}, nil
}

func (q *Queue) Close() error {
	return q.db.Close()
}

// Register binds a handler to a job type. Must be called before Start.
func (q *Queue) Register(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue persists a job that becomes runnable after the given delay.
// Dispatch failure is reported synchronously to the caller.
func (q *Queue) Enqueue(ctx context.Context, jobType string, payload interface{}, delay time.Duration) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal job payload: %w", err)
	}

	id := uuid.NewString()
	runAfter := time.Now().Add(delay).UnixMilli()

	_, err = q.db.ExecContext(ctx,
		"INSERT INTO jobs (id, type, payload, run_after) VALUES (?, ?, ?, ?)",
		id, jobType, string(data), runAfter,
	)
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return id, nil
}

// Pending returns the number of jobs not yet completed
func (q *Queue) Pending(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&n)
	return n, err
}

// Start launches the worker pool. Workers poll for due jobs until the
// context is cancelled; Wait blocks until they have drained.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.config.Workers; i++ {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			ticker := time.NewTicker(q.config.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					for q.runOne(ctx) {
					}
				}
			}
		}()
	}
}

func (q *Queue) Wait() {
	q.wg.Wait()
}

// RunPending synchronously executes every job that is currently due.
// Used by tests and by callers that want deterministic draining.
func (q *Queue) RunPending(ctx context.Context) error {
	for q.runOne(ctx) {
	}
	return ctx.Err()
}

type job struct {
	ID       string
	Type     string
	Payload  string
	Attempts int
}

// runOne claims and executes a single due job, reporting whether one was
// found. Claiming bumps the attempt counter and takes a lease so a worker
// crash leads to redelivery once the lease expires, preserving
// at-least-once semantics.
func (q *Queue) runOne(ctx context.Context) bool {
	j, ok := q.claim(ctx)
	if !ok {
		return false
	}

	q.mu.RLock()
	handler, registered := q.handlers[j.Type]
	q.mu.RUnlock()

	if !registered {
		q.logger.Printf("no handler for job type %q, dropping job %s", j.Type, j.ID)
		q.remove(ctx, j.ID)
		return true
	}

	if err := handler(ctx, []byte(j.Payload)); err != nil {
		if j.Attempts >= q.config.MaxAttempts {
			q.logger.Printf("job %s (%s) failed permanently after %d attempts: %v", j.ID, j.Type, j.Attempts, err)
			q.remove(ctx, j.ID)
			return true
		}
		q.logger.Printf("job %s (%s) failed on attempt %d, will retry: %v", j.ID, j.Type, j.Attempts, err)
		q.release(ctx, j.ID)
		return true
	}

	q.remove(ctx, j.ID)
	return true
}

func (q *Queue) claim(ctx context.Context) (*job, bool) {
	now := time.Now().UnixMilli()

	for {
		j := &job{}
		err := q.db.QueryRowContext(ctx,
			`SELECT id, type, payload, attempts FROM jobs
			 WHERE run_after <= ? AND (reserved_until IS NULL OR reserved_until <= ?)
			 ORDER BY run_after LIMIT 1`,
			now, now,
		).Scan(&j.ID, &j.Type, &j.Payload, &j.Attempts)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false
		}
		if err != nil {
			q.logger.Printf("claim query failed: %v", err)
			return nil, false
		}

		res, err := q.db.ExecContext(ctx,
			`UPDATE jobs SET reserved_until = ?, attempts = attempts + 1
			 WHERE id = ? AND (reserved_until IS NULL OR reserved_until <= ?)`,
			time.Now().Add(q.config.Lease).UnixMilli(), j.ID, now,
		)
		if err != nil {
			q.logger.Printf("claim update failed: %v", err)
			return nil, false
		}
		if n, _ := res.RowsAffected(); n == 1 {
			j.Attempts++
			return j, true
		}
		// another worker won the race, try the next job
	}
}

func (q *Queue) release(ctx context.Context, id string) {
	_, err := q.db.ExecContext(ctx,
		"UPDATE jobs SET reserved_until = NULL, run_after = ? WHERE id = ?",
		time.Now().Add(q.config.RetryDelay).UnixMilli(), id,
	)
	if err != nil {
		q.logger.Printf("release job %s failed: %v", id, err)
	}
}

func (q *Queue) remove(ctx context.Context, id string) {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id); err != nil {
		q.logger.Printf("remove job %s failed: %v", id, err)
	}
}
