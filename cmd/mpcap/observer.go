package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rolivares/mpcap/internal/engine"
	"github.com/rolivares/mpcap/internal/notify"
	"github.com/rolivares/mpcap/internal/tui"
)

// runWithUI drives the engine while a bubbletea program renders the event
// stream. The relay goroutine is the sole consumer of the engine channel;
// it forwards every event to the UI and mirrors the notable ones to the
// notifier.
func runWithUI(
	ctx context.Context,
	eng *engine.Engine,
	notifier notify.RunNotifier,
	workers int,
) (engine.Summary, error) {
	updates := make(chan engine.Event, 64)
	model := tui.NewModel(updates, workers, eng.Cancel)
	program := tea.NewProgram(model)

	uiDone := make(chan struct{})
	go func() {
		defer close(uiDone)
		if _, err := program.Run(); err != nil {
			slog.Error("Progress display failed", "error", err)
		}
	}()

	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relayEvents(ctx, eng, notifier, updates)
	}()

	summary, err := eng.Run(ctx)
	<-relayDone
	<-uiDone
	return summary, err
}

// runPlain drives the engine without the interactive display; progress goes
// to the structured log instead.
func runPlain(
	ctx context.Context,
	eng *engine.Engine,
	notifier notify.RunNotifier,
) (engine.Summary, error) {
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relayEvents(ctx, eng, notifier, nil)
	}()

	summary, err := eng.Run(ctx)
	<-relayDone
	return summary, err
}

// relayEvents consumes the engine's event channel until it closes. When
// updates is non-nil every event is forwarded to it and the channel is
// closed afterwards; otherwise events are logged.
func relayEvents(
	ctx context.Context,
	eng *engine.Engine,
	notifier notify.RunNotifier,
	updates chan<- engine.Event,
) {
	if updates != nil {
		defer close(updates)
	}

	failed := 0
	for ev := range eng.Events() {
		if updates != nil {
			updates <- ev
		} else {
			logEvent(ev)
		}

		if _, ok := ev.(engine.FileError); ok {
			failed++
		}
		publishEvent(ctx, eng, notifier, ev, failed)
	}
}

func logEvent(ev engine.Event) {
	switch ev := ev.(type) {
	case engine.DiscoveryStatus:
		slog.Info(ev.Message)
	case engine.OverallProgress:
		slog.Debug("Progress", "done", ev.Done, "total", ev.Total)
	case engine.SlotProgress:
		slog.Debug(
			"Worker progress",
			"slot", ev.Slot,
			"file", ev.File,
			"percent", ev.Percent,
		)
	}
}

func publishEvent(
	ctx context.Context,
	eng *engine.Engine,
	notifier notify.RunNotifier,
	ev engine.Event,
	failed int,
) {
	if notifier == nil {
		return
	}

	var msg notify.RunMessage
	switch ev := ev.(type) {
	case engine.FileError:
		msg = notify.RunMessage{
			RunID:  eng.RunID(),
			Event:  notify.EventFileFailed,
			File:   ev.File,
			Reason: ev.Reason,
		}
	case engine.RunComplete:
		msg = notify.RunMessage{
			RunID:     eng.RunID(),
			Event:     notify.EventRunComplete,
			Processed: ev.Processed,
			Failed:    failed,
		}
	case engine.RunCancelled:
		msg = notify.RunMessage{
			RunID:     eng.RunID(),
			Event:     notify.EventRunCancelled,
			Processed: ev.Processed,
			Failed:    failed,
		}
	default:
		return
	}

	if err := notifier.Publish(ctx, msg); err != nil {
		slog.Error("Failed to publish run notification", "error", err)
	}
}

// prepareNotifier builds the AMQP notifier when a broker is configured.
// Notifications are strictly optional: no RABBITMQ_HOST means no notifier,
// and a broker that is down only costs a warning.
func prepareNotifier() notify.RunNotifier {
	rb_host := os.Getenv("RABBITMQ_HOST")
	if rb_host == "" {
		return nil
	}

	var amqpCfg notify.AMQPConfig
	amqpCfg.AMQPUri = prepareAMQPUri()
	amqpCfg.Exchange = os.Getenv("AMQP_EXCHANGE")
	amqpCfg.RoutingKey = os.Getenv("AMQP_ROUTING_KEY")
	if amqpCfg.RoutingKey == "" {
		amqpCfg.RoutingKey = "mpcap.runs"
	}

	notifier, err := notify.NewAMQPNotifier(amqpCfg)
	if err != nil {
		slog.Warn("Run notifications disabled", "error", err)
		return nil
	}
	return notifier
}

func prepareAMQPUri() string {
	rb_host := os.Getenv("RABBITMQ_HOST")
	rb_port := os.Getenv("RABBITMQ_PORT")
	rb_user := os.Getenv("RABBITMQ_USER")
	rb_pass := os.Getenv("RABBITMQ_PASS")

	return fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		rb_user,
		rb_pass,
		rb_host,
		rb_port,
	)
}
