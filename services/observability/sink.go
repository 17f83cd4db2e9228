package observability

import "context"

// Outcome is the terminal state of one generation request
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeExhausted Outcome = "exhausted"
)

// Record is the structured trace of one completed or exhausted attempt
// chain. It carries prompt character lengths, never prompt content.
type Record struct {
	RequestID    string  `json:"request_id,omitempty"`
	Purpose      string  `json:"purpose"`
	Provider     string  `json:"provider,omitempty"`
	Model        string  `json:"model,omitempty"`
	JSONMode     bool    `json:"json_mode"`
	SystemChars  int     `json:"system_chars"`
	UserChars    int     `json:"user_chars"`
	LatencyMs    int64   `json:"latency_ms"`
	Attempts     int     `json:"attempts"`
	UsedFallback bool    `json:"used_fallback"`
	Outcome      Outcome `json:"outcome"`

	// Populated on exhaustion only
	AttemptedProviders []string `json:"attempted_providers,omitempty"`
	FailureKind        string   `json:"failure_kind,omitempty"`
	FailureMessage     string   `json:"failure_message,omitempty"`
}

// Sink receives one record per terminal outcome. The sink itself (log
// shipper, metrics exporter, audit store) is an external collaborator;
// emission failures never fail the originating request.
type Sink interface {
	Emit(ctx context.Context, rec Record) error
}

// MultiSink fans one record out to several sinks, returning the first error
type MultiSink []Sink

// Emit implements Sink
func (m MultiSink) Emit(ctx context.Context, rec Record) error {
	var first error
	for _, s := range m {
		if err := s.Emit(ctx, rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NopSink discards all records
type NopSink struct{}

// Emit implements Sink
func (NopSink) Emit(context.Context, Record) error { return nil }
