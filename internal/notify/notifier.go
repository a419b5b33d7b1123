// Package notify publishes run outcomes to an AMQP broker so other
// services (gallery indexers, archival jobs) can react to finished
// conversions. Publishing is optional: when no broker is configured the
// engine's event stream is the only output.
package notify

import (
	"context"
)

type RunNotifier interface {
	Publish(ctx context.Context, msg RunMessage) error

	Close()
}
