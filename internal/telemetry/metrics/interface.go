package metrics

import (
	"context"
)

// Custom type to represent a metric name,
// providing a type-safe way to handle metric names.
type MetricName string

const (
	ImageProcessed MetricName = "image.processed"
	ImageFailed    MetricName = "image.failed"
	RunCompleted   MetricName = "run.completed"
)

type MetricsSvc interface {
	Increment(metric MetricName, attrs map[string]string)
	Shutdown(ctx context.Context) error
}
