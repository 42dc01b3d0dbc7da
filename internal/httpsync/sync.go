// Package httpsync pushes normalized domain entities to the remote service.
// Pushes are queued fire-and-forget by the rest of the system; a small worker
// pool drains the queue and retries transient failures.
package httpsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// EntityKind routes a task to its endpoint.
type EntityKind string

const (
	KindMatch    EntityKind = "match"
	KindCourse   EntityKind = "course"
	KindEconomy  EntityKind = "economy"
	KindSeasonal EntityKind = "seasonal"
	KindDraft    EntityKind = "draft"
)

// Task is one queued push.
type Task struct {
	ReqID string     `json:"reqId"`
	Kind  EntityKind `json:"-"`
	Data  any        `json:"data"`
}

// SyncIDs lists the entity IDs the remote service already holds, per domain.
// It is exchanged at session start so the client only pushes what is missing.
type SyncIDs struct {
	Courses  []string `json:"courses"`
	Matches  []string `json:"matches"`
	Drafts   []string `json:"drafts"`
	Economy  []string `json:"economy"`
	Seasonal []string `json:"seasonal"`
}

// Queue is the remote sync collaborator.
type Queue struct {
	baseURL string
	token   string
	client  *http.Client
	tasks   chan Task
	group   *errgroup.Group
	workers int
}

type Config struct {
	BaseURL string
	Token   string
	Workers int
	// Client is optional; a default with a request timeout is used when nil.
	Client *http.Client
}

func NewQueue(cfg Config) *Queue {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 2
	}
	return &Queue{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		client:  client,
		tasks:   make(chan Task, 256),
		workers: workers,
	}
}

// Start launches the worker pool. Workers drain the queue until Close is
// called or ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	q.group = g
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case task, ok := <-q.tasks:
					if !ok {
						return nil
					}
					if err := q.push(ctx, task); err != nil {
						slog.Warn("remote push failed", "kind", task.Kind, "reqId", task.ReqID, "error", err)
					}
				}
			}
		})
	}
}

// Push enqueues one entity. When the queue is full the task is dropped with a
// log line rather than blocking the caller; sync catches up on next session.
func (q *Queue) Push(kind EntityKind, data any) {
	task := Task{ReqID: uuid.NewString(), Kind: kind, Data: data}
	select {
	case q.tasks <- task:
	default:
		slog.Warn("sync queue full, dropping push", "kind", kind)
	}
}

// Close stops accepting tasks and waits for the workers to drain the queue.
func (q *Queue) Close() error {
	close(q.tasks)
	if q.group == nil {
		return nil
	}
	if err := q.group.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// FetchSyncIDs asks the remote service which entities it already has for the
// given account.
func (q *Queue) FetchSyncIDs(ctx context.Context, arenaID string) (SyncIDs, error) {
	var ids SyncIDs
	url := fmt.Sprintf("%s/sync?arenaid=%s", q.baseURL, arenaID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ids, fmt.Errorf("build sync request: %w", err)
	}
	q.authorize(req)
	resp, err := q.client.Do(req)
	if err != nil {
		return ids, fmt.Errorf("get sync ids: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ids, fmt.Errorf("get sync ids: unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return ids, fmt.Errorf("decode sync ids: %w", err)
	}
	return ids, nil
}

// push POSTs one task to its endpoint, retrying transient failures with
// exponential backoff.
func (q *Queue) push(ctx context.Context, task Task) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	url := fmt.Sprintf("%s/%s", q.baseURL, task.Kind)

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		q.authorize(req)

		resp, err := q.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode < 300:
			return nil
		case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
			return retry.RetryableError(fmt.Errorf("status %d", resp.StatusCode))
		default:
			return fmt.Errorf("status %d", resp.StatusCode)
		}
	})
}

func (q *Queue) authorize(req *http.Request) {
	if q.token != "" {
		req.Header.Set("Authorization", "Bearer "+q.token)
	}
}
