package liveupdates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roomdesk/pkg/kafka"
	kafka_config "roomdesk/pkg/kafka/config"

	kafkago "github.com/segmentio/kafka-go"
)

type kafkaDialer struct {
	dialer       *kafkago.Dialer
	brokers      []string
	topic        string
	dialTimeout  time.Duration
	writeTimeout time.Duration
}

// NewKafkaDialer dials the leader of partition 0 of topic, trying each
// broker in turn.
func NewKafkaDialer(cfg *kafka_config.Config, topic string) Dialer {
	return &kafkaDialer{
		dialer:       cfg.Dialer(),
		brokers:      cfg.Brokers,
		topic:        topic,
		dialTimeout:  cfg.DialTimeout,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (d *kafkaDialer) Dial(ctx context.Context) (Conn, error) {
	if len(d.brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}

	var errs []error
	for _, broker := range d.brokers {
		dialCtx, cancel := context.WithTimeout(ctx, d.dialTimeout)
		conn, err := d.dialer.DialLeader(dialCtx, "tcp", broker, d.topic, 0)
		cancel()
		if err == nil {
			return &kafkaConn{conn: conn, writeTimeout: d.writeTimeout}, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", broker, err))
	}
	return nil, errors.Join(errs...)
}

type kafkaConn struct {
	conn         *kafkago.Conn
	writeTimeout time.Duration
}

func (c *kafkaConn) Write(ctx context.Context, msgs ...kafka.Message) error {
	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	records := make([]kafkago.Message, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, m.ToKafka())
	}
	_, err := c.conn.WriteMessages(records...)
	return err
}

func (c *kafkaConn) Close() error {
	return c.conn.Close()
}
