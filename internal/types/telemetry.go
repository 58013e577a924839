package types

// CloudWatch metric names and dimensions.
const (
	MetricAPILatency         = "APILatency"
	MetricAPIRequests        = "APIRequests"
	MetricCapabilityDecision = "CapabilityDecision"
	MetricLedgerWriteFailure = "LedgerWriteFailure"
	MetricLedgerReplayed     = "LedgerReplayed"

	DimEndpoint   = "Endpoint"
	DimStatus     = "Status"
	DimCapability = "Capability"
	DimOutcome    = "Outcome"

	MetricNamespace = "Wordsmith"
)
