package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyPublishesKeyedMessage(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	pub := NewPublisher(producer, "edutech")
	userID := uuid.New()

	producer.ExpectInputWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "edutech.payment.succeeded" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil || string(key) != userID.String() {
			return errors.New("message not keyed by user")
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var m Message
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		if m.Type != "payment.succeeded" || m.UserID != userID {
			return errors.New("unexpected payload")
		}
		return nil
	})

	pub.Notify(userID, "payment.succeeded", map[string]string{"paymentId": "p1"})
	require.NoError(t, pub.Close())
}

func TestNotifySwallowsSendErrors(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, nil)
	pub := NewPublisher(producer, "")

	producer.ExpectInputAndFail(sarama.ErrOutOfBrokers)
	assert.NotPanics(t, func() { pub.Notify(uuid.New(), "payment.failed", nil) })
	require.NoError(t, pub.Close())

	// events after Close are ignored
	assert.NotPanics(t, func() { pub.Notify(uuid.New(), "payment.failed", nil) })
	require.NoError(t, pub.Close())
}

// stalledProducer never accepts input, like a producer whose brokers are down.
type stalledProducer struct {
	*mocks.AsyncProducer
	input chan *sarama.ProducerMessage
}

func (s *stalledProducer) Input() chan<- *sarama.ProducerMessage { return s.input }

func TestNotifyDoesNotWaitForBrokers(t *testing.T) {
	producer := &stalledProducer{AsyncProducer: mocks.NewAsyncProducer(t, nil), input: make(chan *sarama.ProducerMessage)}
	pub := NewPublisher(producer, "edutech")

	returned := make(chan struct{})
	go func() {
		for i := 0; i < queueSize*2; i++ {
			pub.Notify(uuid.New(), "enrollment.progress", nil)
		}
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a stalled producer")
	}
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "payment.failed", NewPublisher(nil, "").Topic("payment.failed"))
	require.Equal(t, "lms.enrollment.completed", NewPublisher(nil, "lms").Topic("enrollment.completed"))
}
