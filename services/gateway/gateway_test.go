package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agent-platform/llm-gateway/services/providers"
	"github.com/agent-platform/llm-gateway/services/routing"
)

// stubProvider is a scriptable in-memory provider
type stubProvider struct {
	name    string
	model   string
	content string
	err     error
	delay   time.Duration
	calls   atomic.Int32
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return s.model }

func (s *stubProvider) Generate(ctx context.Context, in providers.GenerateInput) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if s.err != nil {
		return "", s.err
	}
	return s.content, nil
}

func newTestGateway(t *testing.T, opts Options, routes map[string][]string, defaultRoute []string, provs ...providers.Provider) *Gateway {
	t.Helper()

	registry, err := providers.NewRegistry(provs...)
	require.NoError(t, err)

	resolver := routing.NewResolver(routing.Policy{
		Routes:       routes,
		DefaultRoute: defaultRoute,
	})

	return New(registry, resolver, opts, nil, zap.NewNop())
}

func TestGenerateSuccessFirstProvider(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", content: "hello"}
	p2 := &stubProvider{name: "p2", model: "m2", content: "unused"}
	gw := newTestGateway(t, Options{}, nil, []string{"p1", "p2"}, p1, p2)

	resp, err := gw.Generate(context.Background(), Request{
		Purpose:    PurposeGenerate,
		UserPrompt: "hi",
	})

	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, "p1", resp.Provider)
	assert.Equal(t, "m1", resp.Model)
	assert.Equal(t, 1, resp.Attempts)
	assert.False(t, resp.UsedFallback)
	assert.Equal(t, int32(0), p2.calls.Load())
}

func TestGenerateTimeoutFallsBack(t *testing.T) {
	// p1 stalls past its deadline; p2 answers with a valid object
	p1 := &stubProvider{name: "p1", model: "m1", delay: 50 * time.Millisecond, content: `{"never":1}`}
	p2 := &stubProvider{name: "p2", model: "m2", content: `{"a":1}`}
	gw := newTestGateway(t, Options{}, nil, []string{"p1", "p2"}, p1, p2)

	resp, err := gw.Generate(context.Background(), Request{
		Purpose:    PurposeGenerate,
		UserPrompt: "hi",
		JSONMode:   true,
		Timeout:    5 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Content)
	assert.Equal(t, "p2", resp.Provider)
	assert.Equal(t, 2, resp.Attempts)
	assert.True(t, resp.UsedFallback)
}

func TestGenerateSingleProviderFailureExhausts(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", err: errors.New("connection refused")}
	gw := newTestGateway(t, Options{}, nil, []string{"p1"}, p1)

	resp, err := gw.Generate(context.Background(), Request{
		Purpose:    PurposeGenerate,
		UserPrompt: "hi",
	})

	require.Error(t, err)
	assert.Nil(t, resp)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"p1"}, exhausted.Attempted)
	assert.Equal(t, ErrorTypeProviderInvocation, exhausted.LastType)
	assert.Equal(t, int32(1), p1.calls.Load(), "no intra-provider retry")
}

func TestGenerateInvalidJSONFallsBack(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", content: "NOT JSON"}
	p2 := &stubProvider{name: "p2", model: "m2", content: `{"ok":true}`}
	gw := newTestGateway(t, Options{}, nil, []string{"p1", "p2"}, p1, p2)

	resp, err := gw.Generate(context.Background(), Request{
		Purpose:    PurposeGenerate,
		UserPrompt: "hi",
		JSONMode:   true,
	})

	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, "p2", resp.Provider)
	assert.True(t, resp.UsedFallback)
}

func TestGenerateJSONModeRejectsNonObjects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "array", content: `[1,2,3]`},
		{name: "string", content: `"hello"`},
		{name: "number", content: `42`},
		{name: "null", content: `null`},
		{name: "truncated object", content: `{"a":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p1 := &stubProvider{name: "p1", model: "m1", content: tt.content}
			gw := newTestGateway(t, Options{}, nil, []string{"p1"}, p1)

			_, err := gw.Generate(context.Background(), Request{
				Purpose:  PurposeGenerate,
				JSONMode: true,
			})

			var exhausted *ExhaustedError
			require.ErrorAs(t, err, &exhausted)
			assert.Equal(t, ErrorTypeInvalidJSONOutput, exhausted.LastType)
		})
	}
}

func TestGenerateJSONModeOffSkipsValidation(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", content: "plain prose answer"}
	gw := newTestGateway(t, Options{}, nil, []string{"p1"}, p1)

	resp, err := gw.Generate(context.Background(), Request{Purpose: PurposeGenerate})

	require.NoError(t, err)
	assert.Equal(t, "plain prose answer", resp.Content)
}

func TestGenerateCallerCancellationAbortsChain(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", delay: time.Second, content: `{"a":1}`}
	p2 := &stubProvider{name: "p2", model: "m2", content: `{"b":2}`}
	gw := newTestGateway(t, Options{}, nil, []string{"p1", "p2"}, p1, p2)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	resp, err := gw.Generate(ctx, Request{Purpose: PurposeGenerate})

	require.Error(t, err)
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), p2.calls.Load(), "cancellation must not advance to the next provider")
}

func TestGenerateUnknownPurposeUsesFallback(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", content: "ok"}
	gw := newTestGateway(t, Options{},
		map[string][]string{"generate": {"p1"}},
		nil, p1)

	resp, err := gw.Generate(context.Background(), Request{Purpose: Purpose("no_such_purpose")})

	require.NoError(t, err)
	assert.Equal(t, "p1", resp.Provider)
}

func TestGeneratePurposeRouteOverridesDefault(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", content: "from p1"}
	p2 := &stubProvider{name: "p2", model: "m2", content: "from p2"}
	gw := newTestGateway(t, Options{},
		map[string][]string{"chat": {"p2"}},
		[]string{"p1"}, p1, p2)

	resp, err := gw.Generate(context.Background(), Request{Purpose: PurposeChat})

	require.NoError(t, err)
	assert.Equal(t, "p2", resp.Provider)
}

func TestGenerateRequestRouteOverride(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", content: "from p1"}
	p2 := &stubProvider{name: "p2", model: "m2", content: "from p2"}
	gw := newTestGateway(t, Options{}, nil, []string{"p1"}, p1, p2)

	resp, err := gw.Generate(context.Background(), Request{
		Purpose: PurposeGenerate,
		Route:   []string{"p2", "p1"},
	})

	require.NoError(t, err)
	assert.Equal(t, "p2", resp.Provider)
}

func TestGenerateNoUsableProviderIsConfigurationError(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1"}
	gw := newTestGateway(t, Options{}, nil, []string{"absent"}, p1)

	_, err := gw.Generate(context.Background(), Request{Purpose: PurposeGenerate})

	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, int32(0), p1.calls.Load())
}

func TestGenerateExhaustionReportsLastFailure(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", err: errors.New("boom one")}
	p2 := &stubProvider{name: "p2", model: "m2", err: errors.New("boom two")}
	gw := newTestGateway(t, Options{}, nil, []string{"p1", "p2"}, p1, p2)

	_, err := gw.Generate(context.Background(), Request{Purpose: PurposeGenerate})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, []string{"p1", "p2"}, exhausted.Attempted)
	assert.Contains(t, exhausted.LastMessage, "provider call failed")
	assert.True(t, IsExhaustedError(err))
}

func TestEffectiveTimeoutPrecedence(t *testing.T) {
	gw := &Gateway{opts: Options{
		PurposeTimeouts:  map[Purpose]time.Duration{PurposeChat: 2 * time.Second},
		ProviderTimeouts: map[string]time.Duration{"local": 3 * time.Second},
	}}

	tests := []struct {
		name     string
		req      Request
		provider string
		want     time.Duration
	}{
		{
			name:     "request override wins",
			req:      Request{Purpose: PurposeChat, Timeout: time.Second},
			provider: "local",
			want:     time.Second,
		},
		{
			name:     "purpose default beats provider default",
			req:      Request{Purpose: PurposeChat},
			provider: "local",
			want:     2 * time.Second,
		},
		{
			name:     "provider default applies last",
			req:      Request{Purpose: PurposeGenerate},
			provider: "local",
			want:     3 * time.Second,
		},
		{
			name:     "unbounded when nothing configured",
			req:      Request{Purpose: PurposeGenerate},
			provider: "cloud",
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gw.effectiveTimeout(tt.req, tt.provider))
		})
	}
}

func TestGenerateRouteOrderIsDeterministic(t *testing.T) {
	p1 := &stubProvider{name: "p1", model: "m1", err: errors.New("down")}
	p2 := &stubProvider{name: "p2", model: "m2", content: "ok"}
	gw := newTestGateway(t, Options{}, nil, []string{"p1", "p2"}, p1, p2)

	for i := 0; i < 5; i++ {
		resp, err := gw.Generate(context.Background(), Request{Purpose: PurposeGenerate})
		require.NoError(t, err)
		assert.Equal(t, "p2", resp.Provider)
		assert.Equal(t, 2, resp.Attempts)
	}
}
