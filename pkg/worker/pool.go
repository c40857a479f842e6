// Package worker provides an asynchronous worker pool that indexes completed
// conversation turns into the vector store, embedding each message with the
// provided embeddings.Embedder.
//
// The pool decouples embedding from the turn's hot path so that a slow or
// failing embedder never delays a reply.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/papercomputeco/loom/pkg/embeddings"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/logger"
	"github.com/papercomputeco/loom/pkg/vector"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	ConversationID string
	UserID         string
	Messages       []llm.Message
}

// Config is the configuration options for the worker pool.
type Config struct {
	// VectorDriver is the vector store receiving embedded messages.
	VectorDriver vector.Driver

	// Embedder generates text embeddings.
	Embedder embeddings.Embedder

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool processes indexing jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.VectorDriver == nil || c.Embedder == nil {
		return nil, errors.New("worker pool requires a vector driver and an embedder")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: logger.OrNop(c.Logger),
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full or the pool is closed,
// resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.logger.Warn("job not queued, pool closed", "conversation_id", job.ConversationID)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"conversation_id", job.ConversationID,
			"messages", len(job.Messages),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"conversation_id", job.ConversationID,
			"messages", len(job.Messages),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the HTTP server has stopped.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("index worker stopped", "worker_id", id)
}

// processJob embeds the indexable messages of a job and stores them.
// Errors are logged but not returned: indexing is best-effort.
func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	docs := make([]vector.Document, 0, len(job.Messages))
	for _, msg := range job.Messages {
		text := strings.TrimSpace(msg.Content)
		if !indexable(msg) || text == "" {
			continue
		}

		embedding, err := p.config.Embedder.Embed(ctx, text)
		if err != nil {
			p.logger.Warn("failed to generate embedding",
				"message_id", msg.ID,
				"error", err,
			)
			continue
		}

		docs = append(docs, vector.Document{
			ID:             msg.ID,
			ConversationID: job.ConversationID,
			UserID:         job.UserID,
			Role:           string(msg.Role),
			Content:        text,
			Embedding:      embedding,
		})
	}

	if len(docs) == 0 {
		return
	}

	if err := p.config.VectorDriver.Add(ctx, docs); err != nil {
		p.logger.Warn("failed to store embeddings",
			"conversation_id", job.ConversationID,
			"error", err,
		)
		return
	}

	p.logger.Info("conversation indexed",
		"conversation_id", job.ConversationID,
		"documents", len(docs),
	)
}

// indexable reports whether msg is conversational text worth searching.
// Action traffic is skipped.
func indexable(msg llm.Message) bool {
	switch msg.Role {
	case llm.RoleUser:
		return true
	case llm.RoleAssistant:
		return !msg.HasAction()
	default:
		return false
	}
}
