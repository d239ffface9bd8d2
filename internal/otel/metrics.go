package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "tabmux"

// Metrics holds all OTEL metric instruments for tabmux.
// All counters are cumulative (monotonic) and safe for concurrent use.
type Metrics struct {
	// Control-mode protocol counters
	CommandsSent       metric.Int64Counter // partitioned by command verb
	Replies            metric.Int64Counter // partitioned by status: ok, error
	Notifications      metric.Int64Counter // partitioned by notification kind
	OutputBytes        metric.Int64Counter
	ProtocolViolations metric.Int64Counter

	// Terminal emulation counters
	ParserRecoveries metric.Int64Counter

	// Tab counters (partitioned by trigger: key, mouse, server)
	TabSwitches metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments
// when no MeterProvider is registered (safe to call unconditionally).
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	// --- Protocol counters ---

	m.CommandsSent, err = meter.Int64Counter("control.commands.sent",
		metric.WithDescription("Control-mode commands written to the server, partitioned by verb"))
	if err != nil {
		return nil, err
	}

	m.Replies, err = meter.Int64Counter("control.replies.total",
		metric.WithDescription("Reply blocks received, partitioned by status (ok, error)"))
	if err != nil {
		return nil, err
	}

	m.Notifications, err = meter.Int64Counter("control.notifications.total",
		metric.WithDescription("Asynchronous notifications received, partitioned by kind"))
	if err != nil {
		return nil, err
	}

	m.OutputBytes, err = meter.Int64Counter("control.output.bytes",
		metric.WithDescription("Decoded pane output bytes routed to tab grids"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	m.ProtocolViolations, err = meter.Int64Counter("control.violations.total",
		metric.WithDescription("Malformed reply blocks discarded by the decoder"))
	if err != nil {
		return nil, err
	}

	// --- Terminal counters ---

	m.ParserRecoveries, err = meter.Int64Counter("terminal.parser.recoveries",
		metric.WithDescription("Malformed escape sequences the terminal parser recovered from"))
	if err != nil {
		return nil, err
	}

	// --- Tab counters ---

	m.TabSwitches, err = meter.Int64Counter("tabs.switches.total",
		metric.WithDescription("Active-tab changes, partitioned by trigger (key, mouse, server)"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCommand records a sent control-mode command by its verb.
func (m *Metrics) RecordCommand(ctx context.Context, verb string) {
	if m == nil {
		return
	}
	m.CommandsSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String("control.verb", verb),
	))
}

// RecordReply records a received reply block.
func (m *Metrics) RecordReply(ctx context.Context, isError bool) {
	if m == nil {
		return
	}
	status := "ok"
	if isError {
		status = "error"
	}
	m.Replies.Add(ctx, 1, metric.WithAttributes(
		attribute.String("control.status", status),
	))
}

// RecordNotification records an asynchronous notification by kind.
func (m *Metrics) RecordNotification(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.Notifications.Add(ctx, 1, metric.WithAttributes(
		attribute.String("control.kind", kind),
	))
}

// RecordOutput records decoded pane output volume.
func (m *Metrics) RecordOutput(ctx context.Context, bytes int) {
	if m == nil {
		return
	}
	m.OutputBytes.Add(ctx, int64(bytes))
}

// RecordViolation records a discarded malformed reply block.
func (m *Metrics) RecordViolation(ctx context.Context) {
	if m == nil {
		return
	}
	m.ProtocolViolations.Add(ctx, 1)
}

// RecordParserRecovery records terminal parser recoveries.
func (m *Metrics) RecordParserRecovery(ctx context.Context, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.ParserRecoveries.Add(ctx, int64(count))
}

// RecordTabSwitch records an active-tab change with its trigger.
func (m *Metrics) RecordTabSwitch(ctx context.Context, trigger string) {
	if m == nil {
		return
	}
	m.TabSwitches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tabs.trigger", trigger),
	))
}
