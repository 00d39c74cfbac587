package tasks

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const (
	metaKind      = "kind"
	metaRequestID = "request_id"
	metaAttempt   = "attempt"
)

// WatermillQueue runs tasks over a watermill publisher/subscriber pair.
type WatermillQueue struct {
	pubsub      pubSub
	topic       string
	concurrency int
	maxAttempts int
	logger      *log.Logger
	handlers    handlerSet

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWatermillQueue builds the configured watermill driver.
func NewWatermillQueue(cfg Config, logger *log.Logger, listeners ...Listener) (*WatermillQueue, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = log.Default()
	}
	ps, err := buildPubSub(cfg, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, err
	}
	return &WatermillQueue{
		pubsub:      ps,
		topic:       cfg.Topic,
		concurrency: cfg.Concurrency,
		maxAttempts: cfg.MaxAttempts,
		logger:      logger,
		handlers:    newHandlerSet(listeners),
	}, nil
}

// Handle registers the handler for a task kind.
func (q *WatermillQueue) Handle(kind string, h Handler) {
	q.handlers.register(kind, h)
}

// Submit publishes a task to the queue topic.
func (q *WatermillQueue) Submit(ctx context.Context, task Task) error {
	if task.Kind == "" {
		return ErrMissingKind
	}
	if task.ID == "" {
		task.ID = watermill.NewUUID()
	}
	msg := message.NewMessage(task.ID, message.Payload(task.Payload))
	msg.Metadata.Set(metaKind, task.Kind)
	msg.Metadata.Set(metaAttempt, strconv.Itoa(task.Attempt))
	if task.RequestID != "" {
		msg.Metadata.Set(metaRequestID, task.RequestID)
	}
	msg.SetContext(ctx)
	return q.pubsub.publisher.Publish(q.topic, msg)
}

// Publish sends payload to topic with the given metadata. The task kind
// defaults to the topic so a queue consuming that topic can Handle it.
func (q *WatermillQueue) Publish(ctx context.Context, topic string, payload []byte, metadata map[string]string) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	for key, value := range metadata {
		msg.Metadata.Set(key, value)
	}
	if msg.Metadata.Get(metaKind) == "" {
		msg.Metadata.Set(metaKind, topic)
	}
	msg.SetContext(ctx)
	return q.pubsub.publisher.Publish(topic, msg)
}

// Start subscribes to the task topic and processes messages until ctx is
// canceled or Close is called.
func (q *WatermillQueue) Start(ctx context.Context) error {
	if q.pubsub.subscriber == nil {
		return errors.New("subscriber is required")
	}
	ctx, cancel := context.WithCancel(ctx)
	msgs, err := q.pubsub.subscriber.Subscribe(ctx, q.topic)
	if err != nil {
		cancel()
		return err
	}
	q.cancel = cancel

	sem := make(chan struct{}, q.concurrency)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				sem <- struct{}{}
				q.wg.Add(1)
				go func(msg *message.Message) {
					defer q.wg.Done()
					defer func() { <-sem }()
					q.handleMessage(ctx, msg)
				}(msg)
			}
		}
	}()
	return nil
}

// Close stops consuming, waits for in-flight tasks and closes the driver.
func (q *WatermillQueue) Close() error {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	return q.pubsub.Close()
}

func (q *WatermillQueue) handleMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	attempt, _ := strconv.Atoi(msg.Metadata.Get(metaAttempt))
	task := Task{
		ID:        msg.UUID,
		Kind:      msg.Metadata.Get(metaKind),
		RequestID: msg.Metadata.Get(metaRequestID),
		Attempt:   attempt,
		Payload:   append([]byte(nil), msg.Payload...),
	}

	err := q.handlers.dispatch(ctx, task)
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoHandler) {
		q.logger.Printf("no handler for task kind=%s id=%s", task.Kind, task.ID)
		return
	}
	if task.Attempt+1 >= q.maxAttempts {
		q.logger.Printf("task dropped kind=%s id=%s request_id=%s attempts=%d: %v", task.Kind, task.ID, task.RequestID, task.Attempt+1, err)
		return
	}

	retry := task
	retry.ID = ""
	retry.Attempt++
	if pubErr := q.Submit(ctx, retry); pubErr != nil {
		q.logger.Printf("task resubmit failed kind=%s request_id=%s: %v", task.Kind, task.RequestID, pubErr)
	}
}
