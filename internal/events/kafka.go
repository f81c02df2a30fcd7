package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
)

const defaultKafkaTopic = "guide-cms.events"

// KafkaConfig configures KafkaSink. With TopicPerFamily set, field, template
// and page events go to <topic>.field, <topic>.template and <topic>.page.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers"`
	Topic          string   `yaml:"topic"`
	TopicPerFamily bool     `yaml:"topic_per_family"`
	Filter         `yaml:",inline"`
}

// KafkaSink publishes events to Kafka. Messages are keyed by post type so
// the changes of one content type stay in order on one partition.
type KafkaSink struct {
	Producer       sarama.AsyncProducer
	Topic          string
	TopicPerFamily bool
}

// NewKafkaSink creates a KafkaSink from config.
func NewKafkaSink(c KafkaConfig) (*KafkaSink, error) {
	if !c.Enabled || len(c.Brokers) == 0 {
		return nil, nil
	}
	cfg := sarama.NewConfig()
	cfg.ClientID = "guide-cms"
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	prod, err := sarama.NewAsyncProducer(c.Brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &KafkaSink{Producer: prod, Topic: c.Topic, TopicPerFamily: c.TopicPerFamily}, nil
}

// TopicFor returns the topic e is published to.
func (s *KafkaSink) TopicFor(e Event) string {
	topic := s.Topic
	if topic == "" {
		topic = defaultKafkaTopic
	}
	if fam := Family(e.Name); s.TopicPerFamily && fam != "" {
		topic += "." + fam
	}
	return topic
}

// Message builds the producer message for e.
func (s *KafkaSink) Message(e Event) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	key := e.PostType
	if key == "" {
		key = e.Name
	}
	return &sarama.ProducerMessage{
		Topic: s.TopicFor(e),
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(e.Name)},
			{Key: []byte("event_id"), Value: []byte(e.ID)},
		},
	}, nil
}

func (s *KafkaSink) Emit(ctx context.Context, e Event) error {
	if s == nil || s.Producer == nil {
		return nil
	}
	msg, err := s.Message(e)
	if err != nil {
		return err
	}
	select {
	case s.Producer.Input() <- msg:
		return nil
	case perr := <-s.Producer.Errors():
		return perr.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes and stops the producer.
func (s *KafkaSink) Close() error {
	if s == nil || s.Producer == nil {
		return nil
	}
	return s.Producer.Close()
}
