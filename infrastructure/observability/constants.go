package observability

// Metric name prefixes
const (
	MetricPrefix = "finengine"
)

// Metric names
const (
	// Workflow metrics
	WorkflowActionsTotal = MetricPrefix + ".workflow.actions_total"

	// Balance metrics
	BalanceMutationsTotal = MetricPrefix + ".balance.mutations_total"

	// Spin metrics
	SpinDrawsTotal = MetricPrefix + ".spin.draws_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// HTTP metrics
	HTTPRequestDuration = MetricPrefix + ".http.request_duration"
)

// Label keys
const (
	LabelEntityType = "entity_type"
	LabelAction     = "action"
	LabelOutcome    = "outcome"
	LabelDirection  = "direction"
	LabelReplayed   = "replayed"
	LabelPrizeType  = "prize_type"
	LabelEventType  = "event_type"
	LabelRoute      = "route"
	LabelMethod     = "method"
	LabelStatus     = "status"
)
