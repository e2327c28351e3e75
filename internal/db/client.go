// Package db archives research runs and deliveries to Postgres. Writes go
// through an async queue so workflow activities never block on the archive.
package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/fionalabs/outreach-orchestrator/internal/metrics"
)

// Config holds database configuration. The DSN is rendered by the config
// layer so connection details live in one place.
type Config struct {
	DSN             string
	MaxConnections  int
	IdleConnections int
	MaxLifetime     time.Duration
}

// Client manages the connection pool and the async write queue.
type Client struct {
	db     *sqlx.DB
	logger *zap.Logger

	writeQueue chan writeRequest
	stopCh     chan struct{}
	workerWg   sync.WaitGroup
}

type writeRequest struct {
	kind string
	data interface{}
}

const (
	writeResearchRun = "research_run"
	writeDelivery    = "delivery"

	queueSize   = 1000
	workerCount = 4
)

// NewClient opens the pool and starts the write workers.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if config.MaxConnections == 0 {
		config.MaxConnections = 25
	}
	if config.IdleConnections == 0 {
		config.IdleConnections = 5
	}
	if config.MaxLifetime == 0 {
		config.MaxLifetime = 5 * time.Minute
	}

	rawDB, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	rawDB.SetMaxOpenConns(config.MaxConnections)
	rawDB.SetMaxIdleConns(config.IdleConnections)
	rawDB.SetConnMaxLifetime(config.MaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	client := &Client{
		db:         rawDB,
		logger:     logger,
		writeQueue: make(chan writeRequest, queueSize),
		stopCh:     make(chan struct{}),
	}
	client.startWorkers()

	logger.Info("Database client initialized",
		zap.Int("max_connections", config.MaxConnections),
	)
	return client, nil
}

// NewClientWithDB wraps an existing connection; used by tests with sqlmock.
func NewClientWithDB(db *sqlx.DB, logger *zap.Logger) *Client {
	client := &Client{
		db:         db,
		logger:     logger,
		writeQueue: make(chan writeRequest, queueSize),
		stopCh:     make(chan struct{}),
	}
	client.startWorkers()
	return client
}

// ArchiveResearchRun queues a research run record for archival. Never blocks;
// drops (with a log line) when the queue is saturated.
func (c *Client) ArchiveResearchRun(run *ResearchRun) {
	c.enqueue(writeRequest{kind: writeResearchRun, data: run})
}

// ArchiveDelivery queues a delivery record for archival.
func (c *Client) ArchiveDelivery(d *Delivery) {
	c.enqueue(writeRequest{kind: writeDelivery, data: d})
}

// InsertResearchRun writes a research run synchronously.
func (c *Client) InsertResearchRun(ctx context.Context, run *ResearchRun) error {
	query := `
		INSERT INTO research_runs (
			id, workflow_id, session_id, lead_name, lead_email, career_field,
			status, attempts, research, error_text, started_at, completed_at
		) VALUES (
			:id, :workflow_id, :session_id, :lead_name, :lead_email, :career_field,
			:status, :attempts, :research, :error_text, :started_at, :completed_at
		)`
	_, err := c.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return fmt.Errorf("insert research run: %w", err)
	}
	return nil
}

// InsertDelivery writes a delivery synchronously.
func (c *Client) InsertDelivery(ctx context.Context, d *Delivery) error {
	query := `
		INSERT INTO deliveries (
			id, workflow_id, message_id, lead_name, recipient, subject,
			body_length, attempt, delivered_at
		) VALUES (
			:id, :workflow_id, :message_id, :lead_name, :recipient, :subject,
			:body_length, :attempt, :delivered_at
		)`
	_, err := c.db.NamedExecContext(ctx, query, d)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Close drains the queue and shuts the pool down.
func (c *Client) Close() error {
	close(c.stopCh)
	c.workerWg.Wait()
	return c.db.Close()
}

// DB exposes the underlying handle for health checks.
func (c *Client) DB() *sqlx.DB { return c.db }

func (c *Client) enqueue(req writeRequest) {
	select {
	case c.writeQueue <- req:
		metrics.ArchiveQueueDepth.Set(float64(len(c.writeQueue)))
	default:
		c.logger.Warn("Archive queue full, dropping write", zap.String("type", req.kind))
		metrics.ArchiveWrites.WithLabelValues(req.kind, "dropped").Inc()
	}
}

func (c *Client) startWorkers() {
	for i := 0; i < workerCount; i++ {
		c.workerWg.Add(1)
		go c.worker()
	}
}

func (c *Client) worker() {
	defer c.workerWg.Done()
	for {
		select {
		case req := <-c.writeQueue:
			c.process(req)
		case <-c.stopCh:
			// Drain what's left before exiting.
			for {
				select {
				case req := <-c.writeQueue:
					c.process(req)
				default:
					return
				}
			}
		}
	}
}

func (c *Client) process(req writeRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch req.kind {
	case writeResearchRun:
		err = c.InsertResearchRun(ctx, req.data.(*ResearchRun))
	case writeDelivery:
		err = c.InsertDelivery(ctx, req.data.(*Delivery))
	}

	metrics.ArchiveQueueDepth.Set(float64(len(c.writeQueue)))
	if err != nil {
		c.logger.Error("Archive write failed", zap.String("type", req.kind), zap.Error(err))
		metrics.ArchiveWrites.WithLabelValues(req.kind, "error").Inc()
		return
	}
	metrics.ArchiveWrites.WithLabelValues(req.kind, "ok").Inc()
}
