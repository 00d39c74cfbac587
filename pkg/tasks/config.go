package tasks

// Config selects and configures the task queue driver.
type Config struct {
	Driver      string `yaml:"driver"`
	Topic       string `yaml:"topic"`
	Concurrency int    `yaml:"concurrency"`
	MaxAttempts int    `yaml:"max_attempts"`

	GoChannel GoChannelConfig `yaml:"gochannel"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	NATS      NATSConfig      `yaml:"nats"`
	AMQP      AMQPConfig      `yaml:"amqp"`
	SQL       SQLConfig       `yaml:"sql"`
	River     RiverConfig     `yaml:"river"`
}

// GoChannelConfig holds configuration for the in-memory GoChannel pub/sub.
type GoChannelConfig struct {
	OutputChannelBuffer int64 `yaml:"output_buffer"`
}

// KafkaConfig holds configuration for the Kafka pub/sub.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// NATSConfig holds configuration for the NATS Streaming pub/sub.
type NATSConfig struct {
	ClusterID string `yaml:"cluster_id"`
	ClientID  string `yaml:"client_id"`
	URL       string `yaml:"url"`
	Durable   string `yaml:"durable"`
}

// AMQPConfig holds configuration for the AMQP pub/sub.
type AMQPConfig struct {
	URL  string `yaml:"url"`
	Mode string `yaml:"mode"`
}

// SQLConfig holds configuration for the SQL pub/sub.
type SQLConfig struct {
	Driver               string `yaml:"driver"`
	DSN                  string `yaml:"dsn"`
	Dialect              string `yaml:"dialect"`
	ConsumerGroup        string `yaml:"consumer_group"`
	AutoInitializeSchema bool   `yaml:"auto_initialize_schema"`
}

// RiverConfig holds configuration for the River job queue.
type RiverConfig struct {
	DSN         string `yaml:"dsn"`
	Queue       string `yaml:"queue"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Driver == "" {
		c.Driver = "gochannel"
	}
	if c.Topic == "" {
		c.Topic = "bountyhooks.tasks"
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.GoChannel.OutputChannelBuffer == 0 {
		c.GoChannel.OutputChannelBuffer = 64
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = "bountyhooks"
	}
	if c.SQL.ConsumerGroup == "" {
		c.SQL.ConsumerGroup = "bountyhooks"
	}
	if c.River.Queue == "" {
		c.River.Queue = "bountyhooks"
	}
}
