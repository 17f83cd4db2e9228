package gateway

import "time"

// Request describes one generation call. Immutable once constructed.
type Request struct {
	// Purpose identifies the calling use-case; it is used only for routing
	// and logging and must never be sent to a provider
	Purpose Purpose

	// SystemPrompt carries the system instructions
	SystemPrompt string

	// UserPrompt carries the user content
	UserPrompt string

	// Temperature controls sampling randomness
	Temperature float64

	// JSONMode requires the returned content to parse as a JSON object
	JSONMode bool

	// Timeout overrides every configured timeout for this request;
	// zero means no override
	Timeout time.Duration

	// Route, when non-empty, replaces the static purpose route verbatim
	// (still filtered against enabled providers)
	Route []string
}

// Response is the outcome of a successful generation call.
type Response struct {
	// Content is the generated text
	Content string `json:"content"`

	// Provider names the provider that produced the content
	Provider string `json:"provider"`

	// Model is the specific model identifier used
	Model string `json:"model"`

	// LatencyMs is the wall-clock duration of the winning attempt only;
	// failed attempts are excluded to keep the metric comparable
	// across providers
	LatencyMs int64 `json:"latency_ms"`

	// Attempts counts providers tried, including failures
	Attempts int `json:"attempts"`

	// UsedFallback is true iff more than one provider was attempted
	UsedFallback bool `json:"used_fallback"`
}
