package observability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	// CloudWatch rejects PutMetricData calls with more than 20 datums.
	maxDatumsPerCall = 20
	flushInterval    = time.Minute
)

// Metrics buffers application metrics and ships them to CloudWatch.
// A nil client turns every operation into a no-op, which keeps local
// development and tests free of AWS calls.
type Metrics struct {
	namespace string
	client    *cloudwatch.Client

	mu     sync.Mutex
	buffer []types.MetricDatum

	done chan struct{}
	once sync.Once
}

// NewMetrics creates a metrics sink that flushes once a minute.
func NewMetrics(namespace string, client *cloudwatch.Client) *Metrics {
	m := &Metrics{
		namespace: namespace,
		client:    client,
		done:      make(chan struct{}),
	}
	if client != nil {
		go m.flushLoop()
	}
	return m
}

// Increment records a count of one for the metric under the given label.
func (m *Metrics) Increment(metric, label string) {
	m.record(metric, label, 1, types.StandardUnitCount)
}

// StartTimer begins timing an operation. Stop records the elapsed
// duration in milliseconds.
func (m *Metrics) StartTimer(metric, label string) Timer {
	return &cloudWatchTimer{
		metrics: m,
		metric:  metric,
		label:   label,
		start:   time.Now(),
	}
}

// RecordDuration records an explicit duration in milliseconds.
func (m *Metrics) RecordDuration(metric, label string, d time.Duration) {
	m.record(metric, label, float64(d.Milliseconds()), types.StandardUnitMilliseconds)
}

// Flush sends all buffered datums immediately.
func (m *Metrics) Flush(ctx context.Context) error {
	if m.client == nil {
		return nil
	}

	m.mu.Lock()
	pending := m.buffer
	m.buffer = nil
	m.mu.Unlock()

	for len(pending) > 0 {
		batch := pending
		if len(batch) > maxDatumsPerCall {
			batch = batch[:maxDatumsPerCall]
		}
		pending = pending[len(batch):]

		_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(m.namespace),
			MetricData: batch,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Close stops the background flush loop and drains the buffer.
func (m *Metrics) Close() error {
	m.once.Do(func() { close(m.done) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.Flush(ctx)
}

func (m *Metrics) record(metric, label string, value float64, unit types.StandardUnit) {
	if m.client == nil {
		return
	}

	datum := types.MetricDatum{
		MetricName: aws.String(metric),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(time.Now()),
		Dimensions: []types.Dimension{
			{Name: aws.String("Label"), Value: aws.String(label)},
		},
	}

	m.mu.Lock()
	m.buffer = append(m.buffer, datum)
	m.mu.Unlock()
}

func (m *Metrics) flushLoop() {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			_ = m.Flush(ctx)
			cancel()
		case <-m.done:
			return
		}
	}
}

// Timer measures the duration of a single operation.
type Timer interface {
	Stop()
}

type cloudWatchTimer struct {
	metrics *Metrics
	metric  string
	label   string
	start   time.Time
}

func (t *cloudWatchTimer) Stop() {
	t.metrics.RecordDuration(t.metric, t.label, time.Since(t.start))
}
