package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
)

const riverJobKind = "bountyhooks.task"

type riverTaskArgs struct {
	TaskKind  string            `json:"task_kind"`
	RequestID string            `json:"request_id,omitempty"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (riverTaskArgs) Kind() string { return riverJobKind }

type riverTaskWorker struct {
	river.WorkerDefaults[riverTaskArgs]
	queue *RiverQueue
}

func (w *riverTaskWorker) Work(ctx context.Context, job *river.Job[riverTaskArgs]) error {
	task := Task{
		ID:        strconv.FormatInt(job.ID, 10),
		Kind:      job.Args.TaskKind,
		RequestID: job.Args.RequestID,
		Attempt:   job.Attempt - 1,
		Payload:   job.Args.Payload,
	}
	err := w.queue.handlers.dispatch(ctx, task)
	if errors.Is(err, ErrNoHandler) {
		w.queue.logger.Printf("no handler for task kind=%s job=%d", task.Kind, job.ID)
		return nil
	}
	return err
}

// RiverQueue runs tasks as River jobs in Postgres.
type RiverQueue struct {
	pool        *pgxpool.Pool
	client      *river.Client[pgx.Tx]
	queue       string
	maxAttempts int
	logger      *log.Logger
	handlers    handlerSet
}

// NewRiverQueue connects to Postgres and prepares a River client.
func NewRiverQueue(ctx context.Context, cfg Config, logger *log.Logger, listeners ...Listener) (*RiverQueue, error) {
	cfg.ApplyDefaults()
	if cfg.River.DSN == "" {
		return nil, errors.New("river dsn is required")
	}
	if logger == nil {
		logger = log.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.River.DSN)
	if err != nil {
		return nil, fmt.Errorf("open river pool: %w", err)
	}
	driver := riverpgxv5.New(pool)

	if cfg.River.AutoMigrate {
		migrator, err := rivermigrate.New(driver, nil)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("river migrator: %w", err)
		}
		if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
			pool.Close()
			return nil, fmt.Errorf("river migrate: %w", err)
		}
	}

	q := &RiverQueue{
		pool:        pool,
		queue:       cfg.River.Queue,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
		handlers:    newHandlerSet(listeners),
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &riverTaskWorker{queue: q})

	client, err := river.NewClient(driver, &river.Config{
		Logger: slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})),
		Queues: map[string]river.QueueConfig{
			cfg.River.Queue: {MaxWorkers: cfg.Concurrency},
		},
		Workers: workers,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("river client: %w", err)
	}
	q.client = client
	return q, nil
}

// Handle registers the handler for a task kind.
func (q *RiverQueue) Handle(kind string, h Handler) {
	q.handlers.register(kind, h)
}

// Submit inserts a task as a River job.
func (q *RiverQueue) Submit(ctx context.Context, task Task) error {
	if task.Kind == "" {
		return ErrMissingKind
	}
	return q.insert(ctx, q.queue, riverTaskArgs{
		TaskKind:  task.Kind,
		RequestID: task.RequestID,
		Payload:   task.Payload,
	})
}

// Publish inserts a job whose task kind is the topic into the topic's own queue.
func (q *RiverQueue) Publish(ctx context.Context, topic string, payload []byte, metadata map[string]string) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	return q.insert(ctx, RiverQueueName(topic), riverTaskArgs{
		TaskKind:  topic,
		RequestID: metadata[metaRequestID],
		Payload:   payload,
		Metadata:  metadata,
	})
}

func (q *RiverQueue) insert(ctx context.Context, queue string, args riverTaskArgs) error {
	_, err := q.client.Insert(ctx, args, &river.InsertOpts{
		Queue:       queue,
		MaxAttempts: q.maxAttempts,
	})
	return err
}

// RiverQueueName maps a topic to the River queue its messages are inserted
// into: claims.merged becomes claims_merged.
func RiverQueueName(topic string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(topic) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// Start starts the River client.
func (q *RiverQueue) Start(ctx context.Context) error {
	return q.client.Start(ctx)
}

// Close stops the River client and closes the pool.
func (q *RiverQueue) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := q.client.Stop(ctx)
	q.pool.Close()
	return err
}
