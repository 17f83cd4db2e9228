package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/services/observability"
	"github.com/agent-platform/llm-gateway/services/providers"
	"github.com/agent-platform/llm-gateway/services/routing"
)

// Options holds the timeout defaults the gateway applies per attempt.
// Precedence: request override, then purpose default, then provider default.
// A zero value everywhere means the attempt is unbounded.
type Options struct {
	// PurposeTimeouts bounds attempts for specific purposes
	PurposeTimeouts map[Purpose]time.Duration

	// ProviderTimeouts is the per-provider default, keyed by provider name
	ProviderTimeouts map[string]time.Duration
}

// Gateway is the single choke-point for generated text. It resolves a
// route for each request, races every provider attempt against a deadline,
// validates structured output, and falls back along the route on failure.
//
// The registry and resolver are immutable after construction, so Generate
// is safe for any number of concurrent callers without locking.
type Gateway struct {
	registry *providers.Registry
	resolver *routing.Resolver
	opts     Options
	sink     observability.Sink
	logger   *zap.Logger
}

// New creates a gateway with all dependencies injected
func New(registry *providers.Registry, resolver *routing.Resolver, opts Options, sink observability.Sink, logger *zap.Logger) *Gateway {
	if sink == nil {
		sink = observability.NopSink{}
	}
	return &Gateway{
		registry: registry,
		resolver: resolver,
		opts:     opts,
		sink:     sink,
		logger:   logger,
	}
}

// Generate runs one request through the resolved route.
//
// Each provider in the route receives exactly one attempt; there is no
// intra-provider retry, so a single transient failure on the only
// configured provider surfaces as exhaustion. That is the documented
// contract, not an oversight.
func (g *Gateway) Generate(ctx context.Context, req Request) (*Response, error) {
	if !req.Purpose.Known() {
		g.logger.Debug("unknown purpose, using fallback", zap.String("purpose", string(req.Purpose)))
		req.Purpose = PurposeGenerate
	}

	route, err := g.resolver.Resolve(string(req.Purpose), req.Route, g.registry)
	if err != nil {
		return nil, NewConfigurationError("no provider available for purpose "+string(req.Purpose), err)
	}

	attempted := make([]string, 0, len(route))
	var lastErr *Error

	for _, name := range route {
		provider, err := g.registry.Get(name)
		if err != nil {
			return nil, NewConfigurationError("route references unknown provider "+name, err)
		}

		attempted = append(attempted, name)

		start := time.Now()
		content, attemptErr := g.attempt(ctx, provider, req)
		if attemptErr != nil {
			// Caller-side cancellation aborts the whole chain; a per-attempt
			// timeout only advances to the next provider.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			lastErr = classify(attemptErr, name)
			g.logger.Warn("provider attempt failed",
				zap.String("purpose", string(req.Purpose)),
				zap.String("provider", name),
				zap.String("kind", string(lastErr.Type)),
				zap.Error(attemptErr))
			continue
		}

		resp := &Response{
			Content:      content,
			Provider:     provider.Name(),
			Model:        provider.Model(),
			LatencyMs:    time.Since(start).Milliseconds(),
			Attempts:     len(attempted),
			UsedFallback: len(attempted) > 1,
		}
		g.emit(ctx, req, resp, nil)
		return resp, nil
	}

	exhausted := &ExhaustedError{
		Attempted:   attempted,
		LastType:    lastErr.Type,
		LastMessage: lastErr.Message,
	}
	g.emit(ctx, req, &Response{Attempts: len(attempted), UsedFallback: len(attempted) > 1}, exhausted)
	return nil, exhausted
}

// attempt races one provider call against the effective deadline. The call
// runs in its own goroutine with a buffered result channel, so a losing
// call is cancelled through its context and can still drain without
// leaking; the transport releases the connection on cancellation.
func (g *Gateway) attempt(ctx context.Context, p providers.Provider, req Request) (string, error) {
	attemptCtx := ctx
	if timeout := g.effectiveTimeout(req, p.Name()); timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		content string
		err     error
	}
	ch := make(chan result, 1)

	go func() {
		content, err := p.Generate(attemptCtx, providers.GenerateInput{
			SystemPrompt: req.SystemPrompt,
			UserPrompt:   req.UserPrompt,
			Temperature:  req.Temperature,
			JSONMode:     req.JSONMode,
		})
		ch <- result{content: content, err: err}
	}()

	var content string
	select {
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", NewTimeoutError(p.Name(), req.Purpose)
	case r := <-ch:
		if r.err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			if errors.Is(r.err, context.DeadlineExceeded) {
				return "", NewTimeoutError(p.Name(), req.Purpose)
			}
			return "", r.err
		}
		content = r.content
	}

	if req.JSONMode {
		if err := validateJSONObject(content); err != nil {
			// Malformed output is discarded, never returned to the caller.
			return "", NewInvalidJSONError(p.Name(), err)
		}
	}

	return content, nil
}

// effectiveTimeout applies the precedence chain for one attempt
func (g *Gateway) effectiveTimeout(req Request, provider string) time.Duration {
	if req.Timeout > 0 {
		return req.Timeout
	}
	if t, ok := g.opts.PurposeTimeouts[req.Purpose]; ok && t > 0 {
		return t
	}
	if t, ok := g.opts.ProviderTimeouts[provider]; ok && t > 0 {
		return t
	}
	return 0
}

// emit sends one record per terminal outcome. Emission failures are logged
// and never fail the originating request.
func (g *Gateway) emit(ctx context.Context, req Request, resp *Response, exhausted *ExhaustedError) {
	rec := observability.Record{
		Purpose:      string(req.Purpose),
		JSONMode:     req.JSONMode,
		SystemChars:  len(req.SystemPrompt),
		UserChars:    len(req.UserPrompt),
		Attempts:     resp.Attempts,
		UsedFallback: resp.UsedFallback,
		Outcome:      observability.OutcomeSuccess,
	}
	if exhausted != nil {
		rec.Outcome = observability.OutcomeExhausted
		rec.AttemptedProviders = exhausted.Attempted
		rec.FailureKind = string(exhausted.LastType)
		rec.FailureMessage = exhausted.LastMessage
	} else {
		rec.Provider = resp.Provider
		rec.Model = resp.Model
		rec.LatencyMs = resp.LatencyMs
	}

	if err := g.sink.Emit(ctx, rec); err != nil {
		g.logger.Error("failed to emit call record", zap.Error(err))
	}
}

// classify converts an arbitrary attempt failure into a typed gateway error
func classify(err error, provider string) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	return NewInvocationError(provider, err)
}

// validateJSONObject accepts only a JSON object: arrays, scalars and null
// all fail, matching the json_mode contract.
func validateJSONObject(content string) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &obj); err != nil {
		return err
	}
	if obj == nil {
		return errors.New("content is JSON null, not an object")
	}
	return nil
}
