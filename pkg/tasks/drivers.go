package tasks

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmamqp "github.com/ThreeDotsLabs/watermill-amqp/pkg/amqp"
	wmkafka "github.com/ThreeDotsLabs/watermill-kafka/pkg/kafka"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/pkg/nats"
	wmsql "github.com/ThreeDotsLabs/watermill-sql/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	stan "github.com/nats-io/stan.go"
)

// pubSub pairs the publish and subscribe sides of one driver.
type pubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	closeFn    func() error
}

func (p pubSub) Close() error {
	var err error
	if p.publisher != nil {
		err = errors.Join(err, p.publisher.Close())
	}
	// GoChannel serves both sides.
	if p.subscriber != nil && any(p.subscriber) != any(p.publisher) {
		err = errors.Join(err, p.subscriber.Close())
	}
	if p.closeFn != nil {
		err = errors.Join(err, p.closeFn())
	}
	return err
}

// PubSubFactory builds a publisher/subscriber pair for a driver.
type PubSubFactory func(cfg Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, func() error, error)

var pubSubFactories = map[string]PubSubFactory{}

// RegisterDriver adds a custom watermill driver.
func RegisterDriver(name string, factory PubSubFactory) {
	if name == "" || factory == nil {
		return
	}
	pubSubFactories[strings.ToLower(name)] = factory
}

func buildPubSub(cfg Config, logger watermill.LoggerAdapter) (pubSub, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "gochannel":
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.GoChannel.OutputChannelBuffer,
		}, logger)
		return pubSub{publisher: ch, subscriber: ch}, nil
	case "kafka":
		if len(cfg.Kafka.Brokers) == 0 {
			return pubSub{}, errors.New("kafka brokers are required")
		}
		pub, err := retryBuild(func() (message.Publisher, error) {
			return wmkafka.NewPublisher(cfg.Kafka.Brokers, wmkafka.DefaultMarshaler{}, nil, logger)
		})
		if err != nil {
			return pubSub{}, err
		}
		sub, err := wmkafka.NewSubscriber(wmkafka.SubscriberConfig{
			Brokers:       cfg.Kafka.Brokers,
			ConsumerGroup: cfg.Kafka.ConsumerGroup,
		}, nil, wmkafka.DefaultMarshaler{}, logger)
		if err != nil {
			_ = pub.Close()
			return pubSub{}, err
		}
		return pubSub{publisher: pub, subscriber: sub}, nil
	case "nats":
		if cfg.NATS.ClusterID == "" || cfg.NATS.ClientID == "" {
			return pubSub{}, errors.New("nats cluster_id and client_id are required")
		}
		var stanOptions []stan.Option
		if cfg.NATS.URL != "" {
			stanOptions = append(stanOptions, stan.NatsURL(cfg.NATS.URL))
		}
		pub, err := wmnats.NewStreamingPublisher(wmnats.StreamingPublisherConfig{
			ClusterID:   cfg.NATS.ClusterID,
			ClientID:    cfg.NATS.ClientID + "-pub",
			StanOptions: stanOptions,
			Marshaler:   wmnats.GobMarshaler{},
		}, logger)
		if err != nil {
			return pubSub{}, err
		}
		sub, err := wmnats.NewStreamingSubscriber(wmnats.StreamingSubscriberConfig{
			ClusterID:   cfg.NATS.ClusterID,
			ClientID:    cfg.NATS.ClientID + "-sub",
			DurableName: cfg.NATS.Durable,
			StanOptions: stanOptions,
			Unmarshaler: wmnats.GobMarshaler{},
		}, logger)
		if err != nil {
			_ = pub.Close()
			return pubSub{}, err
		}
		return pubSub{publisher: pub, subscriber: sub}, nil
	case "amqp":
		if cfg.AMQP.URL == "" {
			return pubSub{}, errors.New("amqp url is required")
		}
		amqpCfg, err := amqpConfigFromMode(cfg.AMQP.URL, cfg.AMQP.Mode)
		if err != nil {
			return pubSub{}, err
		}
		pub, err := wmamqp.NewPublisher(amqpCfg, logger)
		if err != nil {
			return pubSub{}, err
		}
		sub, err := wmamqp.NewSubscriber(amqpCfg, logger)
		if err != nil {
			_ = pub.Close()
			return pubSub{}, err
		}
		return pubSub{publisher: pub, subscriber: sub}, nil
	case "sql":
		return buildSQLPubSub(cfg, logger)
	default:
		if factory, ok := pubSubFactories[strings.ToLower(cfg.Driver)]; ok {
			pub, sub, closeFn, err := factory(cfg, logger)
			if err != nil {
				return pubSub{}, err
			}
			return pubSub{publisher: pub, subscriber: sub, closeFn: closeFn}, nil
		}
		return pubSub{}, fmt.Errorf("unsupported task driver: %s", cfg.Driver)
	}
}

func buildSQLPubSub(cfg Config, logger watermill.LoggerAdapter) (pubSub, error) {
	if cfg.SQL.Driver == "" || cfg.SQL.DSN == "" {
		return pubSub{}, errors.New("sql driver and dsn are required")
	}
	schemaAdapter, offsetsAdapter, err := sqlAdapters(cfg.SQL.Dialect)
	if err != nil {
		return pubSub{}, err
	}
	db, err := sql.Open(cfg.SQL.Driver, cfg.SQL.DSN)
	if err != nil {
		return pubSub{}, err
	}
	pub, err := wmsql.NewPublisher(db, wmsql.PublisherConfig{
		SchemaAdapter:        schemaAdapter,
		AutoInitializeSchema: cfg.SQL.AutoInitializeSchema,
	}, logger)
	if err != nil {
		_ = db.Close()
		return pubSub{}, err
	}
	sub, err := wmsql.NewSubscriber(db, wmsql.SubscriberConfig{
		ConsumerGroup:    cfg.SQL.ConsumerGroup,
		SchemaAdapter:    schemaAdapter,
		OffsetsAdapter:   offsetsAdapter,
		InitializeSchema: cfg.SQL.AutoInitializeSchema,
	}, logger)
	if err != nil {
		_ = pub.Close()
		_ = db.Close()
		return pubSub{}, err
	}
	return pubSub{publisher: pub, subscriber: sub, closeFn: db.Close}, nil
}

func retryBuild(build func() (message.Publisher, error)) (message.Publisher, error) {
	const attempts = 5
	const delay = 2 * time.Second

	var lastErr error
	for i := 0; i < attempts; i++ {
		pub, err := build()
		if err == nil {
			return pub, nil
		}
		lastErr = err
		time.Sleep(delay)
	}
	return nil, lastErr
}

func amqpConfigFromMode(url, mode string) (wmamqp.Config, error) {
	switch strings.ToLower(mode) {
	case "", "durable_queue":
		return wmamqp.NewDurableQueueConfig(url), nil
	case "nondurable_queue":
		return wmamqp.NewNonDurableQueueConfig(url), nil
	default:
		return wmamqp.Config{}, fmt.Errorf("unsupported amqp mode: %s", mode)
	}
}

func sqlAdapters(dialect string) (wmsql.SchemaAdapter, wmsql.OffsetsAdapter, error) {
	switch strings.ToLower(dialect) {
	case "postgres", "postgresql":
		return wmsql.DefaultPostgreSQLSchema{}, wmsql.DefaultPostgreSQLOffsetsAdapter{}, nil
	case "mysql":
		return wmsql.DefaultMySQLSchema{}, wmsql.DefaultMySQLOffsetsAdapter{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported sql dialect: %s", dialect)
	}
}
