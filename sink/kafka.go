// Kafka sink: one JSON record per feature row, keyed by the trace path, so
// downstream training pipelines can consume extractions as they happen.

package sink

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"
)

const DefaultKafkaTopic = "aiio.features"

type kafkaSink struct {
	client *kgo.Client
	topic  string
	schema []string
}

type featureMessage struct {
	Trace    string    `json:"trace"`
	Columns  []string  `json:"columns"`
	Features []float64 `json:"features"`
}

func NewKafkaSink(broker, topic string) (RowSink, error) {
	if topic == "" {
		topic = DefaultKafkaTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, err
	}
	return &kafkaSink{client: client, topic: topic}, nil
}

func (s *kafkaSink) WriteHeader(schema []string) error {
	// The schema rides along in every message; messages are self-describing
	// since topic consumers may join mid-run.
	s.schema = schema
	return nil
}

func (s *kafkaSink) WriteRow(trace string, row []float64) error {
	value, err := json.Marshal(featureMessage{
		Trace:    trace,
		Columns:  s.schema,
		Features: row,
	})
	if err != nil {
		return err
	}
	record := &kgo.Record{Topic: s.topic, Key: []byte(trace), Value: value}
	return s.client.ProduceSync(context.Background(), record).FirstErr()
}

func (s *kafkaSink) Close() error {
	s.client.Close()
	return nil
}
