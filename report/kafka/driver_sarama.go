package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
	"gopkg.in/yaml.v3"

	"clasp/internal/logging"
	"clasp/report"
)

type Config struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Acks    int16    `yaml:"required_acks"` // 0,1,-1
}

type driver struct {
	cfg  Config
	p    sarama.AsyncProducer
	done chan struct{}
	once sync.Once
}

func (d *driver) Configure(node *yaml.Node) error {
	if node == nil || node.Kind == 0 {
		return errors.New("kafka-report: missing config")
	}
	if err := node.Decode(&d.cfg); err != nil {
		return fmt.Errorf("kafka-report: %w", err)
	}
	if len(d.cfg.Brokers) == 0 || d.cfg.Topic == "" {
		return errors.New("kafka-report: brokers and topic are required")
	}

	sc := sarama.NewConfig()
	sc.Producer.RequiredAcks = sarama.RequiredAcks(d.cfg.Acks)
	sc.Producer.Return.Errors = true
	p, err := sarama.NewAsyncProducer(d.cfg.Brokers, sc)
	if err != nil {
		return err
	}
	d.bind(p)
	return nil
}

// bind starts draining the producer's error channel.
func (d *driver) bind(p sarama.AsyncProducer) {
	d.p = p
	d.done = make(chan struct{})
	go func() {
		defer close(d.done)
		for err := range p.Errors() {
			logging.L().Warn("report publish failed", "topic", d.cfg.Topic, "err", err.Err)
		}
	}()
}

func (d *driver) Push(e *report.Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka-report: %w", err)
	}
	key := e.Class
	if key == "" {
		key = e.BuildID
	}
	d.p.Input() <- &sarama.ProducerMessage{
		Topic: d.cfg.Topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(value),
	}
	return nil
}

func (d *driver) Close() error {
	var err error
	d.once.Do(func() {
		if d.p == nil {
			return
		}
		err = d.p.Close()
		<-d.done
	})
	return err
}

func init() { report.Register("kafka", func() report.Adapter { return &driver{} }) }
