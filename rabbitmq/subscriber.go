package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/streadway/amqp"

	"fieldops-service/metrics"
)

// Message represents a received RabbitMQ message
type Message struct {
	Body        []byte
	RoutingKey  string
	DeliveryTag uint64
}

// UnmarshalTo unmarshals the message body into the provided interface
func (m *Message) UnmarshalTo(v interface{}) error {
	return json.Unmarshal(m.Body, v)
}

// CallbackFunc represents a callback function for processing messages
type CallbackFunc func(msg *Message) error

// PermanentError marks a message processing failure as non-retriable;
// the subscriber nacks without requeueing.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	if e == nil || e.Err == nil {
		return "permanent error"
	}
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Permanent wraps err as a PermanentError (non-retriable).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func isPermanent(err error) bool {
	var perr *PermanentError
	return errors.As(err, &perr)
}

// Subscriber consumes one queue with a bounded worker pool. A callback
// error requeues the delivery unless it is Permanent; if the broker
// connection drops the consume loop reconnects with backoff.
type Subscriber struct {
	amqpURL  string
	exchange string
	queue    string
	workers  int
	prefetch int

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	startOnce sync.Once
	closeOnce sync.Once
	done      chan struct{}
}

// NewSubscriber creates a new RabbitMQ subscriber instance
func NewSubscriber(amqpURL, exchangeName, queueName string, workers, prefetch int) (*Subscriber, error) {
	if workers <= 0 {
		workers = 1
	}
	if prefetch <= 0 {
		prefetch = workers
	}
	s := &Subscriber{
		amqpURL:  amqpURL,
		exchange: exchangeName,
		queue:    queueName,
		workers:  workers,
		prefetch: prefetch,
		done:     make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.connectLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscriber) connectLocked() error {
	conn, err := amqp.Dial(s.amqpURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(s.exchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	s.conn = conn
	s.channel = ch
	metrics.RabbitMQConnected.Set(1)
	return nil
}

func (s *Subscriber) closeLocked() {
	metrics.RabbitMQConnected.Set(0)
	if s.channel != nil {
		_ = s.channel.Close()
		s.channel = nil
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// consumeSession binds the routing keys and opens a delivery stream on
// the current channel.
func (s *Subscriber) startSessionLocked(routingKeys []string) (<-chan amqp.Delivery, <-chan *amqp.Error, error) {
	if s.conn == nil || s.conn.IsClosed() || s.channel == nil {
		s.closeLocked()
		if err := s.connectLocked(); err != nil {
			return nil, nil, err
		}
	}

	if err := s.channel.Qos(s.prefetch, 0, false); err != nil {
		s.closeLocked()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	for _, key := range routingKeys {
		if err := s.channel.QueueBind(s.queue, key, s.exchange, false, nil); err != nil {
			s.closeLocked()
			return nil, nil, fmt.Errorf("failed to bind queue %s to %s: %w", s.queue, key, err)
		}
	}

	msgs, err := s.channel.Consume(s.queue, "", false, false, false, false, nil)
	if err != nil {
		s.closeLocked()
		return nil, nil, fmt.Errorf("failed to register consumer: %w", err)
	}
	connClose := s.conn.NotifyClose(make(chan *amqp.Error, 1))
	return msgs, connClose, nil
}

// Start begins consuming messages, dispatching per routing key.
func (s *Subscriber) Start(routingKeyCallbacks map[string]CallbackFunc) error {
	var startErr error
	s.startOnce.Do(func() {
		var routingKeys []string
		for key := range routingKeyCallbacks {
			routingKeys = append(routingKeys, key)
		}

		jobs := make(chan amqp.Delivery, s.workers)
		for i := 0; i < s.workers; i++ {
			workerID := i + 1
			go func() {
				for delivery := range jobs {
					s.handle(workerID, delivery, routingKeyCallbacks)
				}
			}()
		}

		s.mu.Lock()
		msgs, connClose, err := s.startSessionLocked(routingKeys)
		s.mu.Unlock()
		if err != nil {
			close(jobs)
			startErr = err
			return
		}

		go func() {
			defer close(jobs)
			backoff := time.Second
			for {
				select {
				case <-s.done:
					return
				case cerr := <-connClose:
					log.Errorf("RabbitMQ connection closed: %v", cerr)
					msgs = nil
				case delivery, ok := <-msgs:
					if !ok {
						msgs = nil
						break
					}
					select {
					case jobs <- delivery:
					case <-s.done:
						return
					}
				}

				for msgs == nil {
					select {
					case <-s.done:
						return
					case <-time.After(backoff):
					}
					s.mu.Lock()
					s.closeLocked()
					m, cc, err := s.startSessionLocked(routingKeys)
					s.mu.Unlock()
					if err != nil {
						log.Errorf("RabbitMQ reconnect failed: %v", err)
						if backoff < 30*time.Second {
							backoff *= 2
						}
						continue
					}
					msgs, connClose = m, cc
					backoff = time.Second
					log.Info("RabbitMQ consumer reconnected")
				}
			}
		}()
	})
	return startErr
}

func (s *Subscriber) handle(workerID int, delivery amqp.Delivery, callbacks map[string]CallbackFunc) {
	started := time.Now()
	metrics.WorkerInFlight.Inc()
	defer metrics.WorkerInFlight.Dec()

	callback, ok := callbacks[delivery.RoutingKey]
	if !ok {
		_ = delivery.Nack(false, false)
		metrics.ProcessedTotal.WithLabelValues("unrouted").Inc()
		log.Errorf("No handler for routing key %s, dropping delivery %d", delivery.RoutingKey, delivery.DeliveryTag)
		return
	}

	msg := &Message{
		Body:        delivery.Body,
		RoutingKey:  delivery.RoutingKey,
		DeliveryTag: delivery.DeliveryTag,
	}

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = Permanent(fmt.Errorf("handler panic: %v", r))
			}
		}()
		return callback(msg)
	}()

	switch {
	case err == nil:
		_ = delivery.Ack(false)
		metrics.ProcessedTotal.WithLabelValues("ok").Inc()
		log.Debugf("Worker %d processed %s delivery %d in %dms",
			workerID, delivery.RoutingKey, delivery.DeliveryTag, time.Since(started).Milliseconds())
	case isPermanent(err):
		_ = delivery.Nack(false, false)
		metrics.ProcessedTotal.WithLabelValues("permanent_error").Inc()
		log.Errorf("Worker %d dropped %s delivery %d: %v", workerID, delivery.RoutingKey, delivery.DeliveryTag, err)
	default:
		// Transient failure: redelivered messages get one retry, then drop.
		requeue := !delivery.Redelivered
		_ = delivery.Nack(false, requeue)
		metrics.ProcessedTotal.WithLabelValues("transient_error").Inc()
		log.Errorf("Worker %d failed %s delivery %d (requeue=%t): %v",
			workerID, delivery.RoutingKey, delivery.DeliveryTag, requeue, err)
	}
}

// Close closes the subscriber connection and channel
func (s *Subscriber) Close() error {
	s.closeOnce.Do(func() { close(s.done) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
	return nil
}

// IsConnected checks if the subscriber is still connected
func (s *Subscriber) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil && !s.conn.IsClosed() && s.channel != nil
}
