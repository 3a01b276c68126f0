// Package events publishes domain events for other services to consume.
package events

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Message is the value written to Kafka. The key is the user id, so events
// for one user stay ordered within a partition.
type Message struct {
	Type       string      `json:"type"`
	UserID     uuid.UUID   `json:"userId"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data,omitempty"`
}

const queueSize = 256

// KafkaPublisher hands events to an async producer through a bounded queue,
// so callers never wait on the brokers. Events are dropped when the queue is
// full.
type KafkaPublisher struct {
	producer    sarama.AsyncProducer
	topicPrefix string

	mu     sync.RWMutex
	closed bool
	queue  chan *sarama.ProducerMessage
	done   chan struct{}
}

// NewKafkaPublisher dials the brokers (comma separated) with a fully
// acknowledged async producer.
func NewKafkaPublisher(brokers, topicPrefix string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}
	log.Println("✅ Kafka producer initialized")
	return NewPublisher(producer, topicPrefix), nil
}

func NewPublisher(producer sarama.AsyncProducer, topicPrefix string) *KafkaPublisher {
	p := &KafkaPublisher{
		producer:    producer,
		topicPrefix: topicPrefix,
		queue:       make(chan *sarama.ProducerMessage, queueSize),
		done:        make(chan struct{}),
	}
	if producer != nil {
		go p.forward()
		go p.logErrors()
	} else {
		close(p.done)
	}
	return p
}

func (p *KafkaPublisher) forward() {
	for msg := range p.queue {
		p.producer.Input() <- msg
	}
	p.producer.AsyncClose()
}

func (p *KafkaPublisher) logErrors() {
	defer close(p.done)
	for perr := range p.producer.Errors() {
		log.Printf("❌ Failed to send Kafka message to %s: %v", perr.Msg.Topic, perr.Err)
	}
}

// Topic is where events of the given type are written, e.g.
// "edutech.payment.succeeded".
func (p *KafkaPublisher) Topic(eventType string) string {
	if p.topicPrefix == "" {
		return eventType
	}
	return p.topicPrefix + "." + eventType
}

// Notify queues the event and returns immediately. Failures are logged;
// the caller's work is already committed.
func (p *KafkaPublisher) Notify(userID uuid.UUID, eventType string, data interface{}) {
	value, err := json.Marshal(Message{Type: eventType, UserID: userID, OccurredAt: time.Now().UTC(), Data: data})
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", eventType, err)
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.Topic(eventType),
		Key:   sarama.StringEncoder(userID.String()),
		Value: sarama.ByteEncoder(value),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		log.Printf("⚠️ Kafka queue full, dropping %s event for %s", eventType, userID)
	}
}

// Close flushes queued events and shuts the producer down.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	<-p.done
	return nil
}
