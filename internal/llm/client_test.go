package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mawsuah/tahqiq/internal/cache"
	"github.com/mawsuah/tahqiq/internal/model"
	"golang.org/x/time/rate"
)

// instantSleep replaces the backoff sleep and records requested waits.
func instantSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	t.Cleanup(func() { sleepFunc = orig })
	return &waits
}

func testRequest() Request {
	return Request{
		System:    "You are a precise annotator.",
		Exemplars: []string{"example in", "example out"},
		Payload:   "Item 1\nPrimary text: test",
		EstTokens: 50,
	}
}

func TestClient_CacheHitSkipsDispatch(t *testing.T) {
	stub := NewStubProvider()
	stub.Respond = func(Request) (string, error) { return `{"ok": true}`, nil }

	client := NewClient(stub, Options{
		Cache: cache.NewMemoryCache(time.Minute, time.Minute),
	})

	first, err := client.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.Cached {
		t.Error("Expected first invoke to miss the cache")
	}

	second, err := client.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !second.Cached {
		t.Error("Expected second invoke to hit the cache")
	}
	if second.Content != first.Content {
		t.Errorf("Expected identical content, got %q and %q", first.Content, second.Content)
	}
	if stub.Calls() != 1 {
		t.Errorf("Expected 1 dispatched call, got %d", stub.Calls())
	}

	usage := client.Meter().Snapshot()
	if usage.Calls != 1 || usage.CacheHits != 1 {
		t.Errorf("Expected 1 call and 1 cache hit, got %d and %d", usage.Calls, usage.CacheHits)
	}
}

func TestClient_RetriesTransientThenSucceeds(t *testing.T) {
	waits := instantSleep(t)

	stub := NewStubProvider()
	fails := 2
	stub.Respond = func(Request) (string, error) {
		if fails > 0 {
			fails--
			return "", errors.New("backend hiccup")
		}
		return `{"ok": true}`, nil
	}

	client := NewClient(stub, Options{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	})

	resp, err := client.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Content != `{"ok": true}` {
		t.Errorf("Unexpected content %q", resp.Content)
	}
	if stub.Calls() != 3 {
		t.Errorf("Expected 3 calls, got %d", stub.Calls())
	}

	// Exponential backoff with jitter: each wait is at least the base and
	// the base doubles.
	if len(*waits) != 2 {
		t.Fatalf("Expected 2 backoff sleeps, got %d", len(*waits))
	}
	if (*waits)[0] < time.Second || (*waits)[1] < 2*time.Second {
		t.Errorf("Expected waits >= 1s then >= 2s, got %v", *waits)
	}
}

func TestClient_TransientExhaustion(t *testing.T) {
	instantSleep(t)

	stub := NewStubProvider()
	stub.Respond = func(Request) (string, error) {
		return "", errors.New("still down")
	}

	client := NewClient(stub, Options{MaxRetries: 3})

	_, err := client.Invoke(context.Background(), testRequest())
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !model.IsTransient(err) {
		t.Errorf("Expected transient classification, got %v", err)
	}

	var tf *model.TransientCallFailure
	if !errors.As(err, &tf) {
		t.Fatalf("Expected TransientCallFailure, got %T", err)
	}
	if len(tf.Attempts) != 3 {
		t.Errorf("Expected 3 recorded attempts, got %d", len(tf.Attempts))
	}
}

func TestClient_PermanentFailureShortCircuits(t *testing.T) {
	instantSleep(t)

	stub := NewStubProvider()
	stub.Respond = func(Request) (string, error) {
		return "", &model.PermanentCallFailure{Reason: "backend rejected request"}
	}

	client := NewClient(stub, Options{MaxRetries: 3})

	_, err := client.Invoke(context.Background(), testRequest())
	if !model.IsPermanent(err) {
		t.Fatalf("Expected permanent classification, got %v", err)
	}
	if stub.Calls() != 1 {
		t.Errorf("Expected no retries after permanent failure, got %d calls", stub.Calls())
	}
}

func TestClient_RepromptOnMalformedOutput(t *testing.T) {
	stub := NewStubProvider()
	var systems []string
	stub.Respond = func(req Request) (string, error) {
		systems = append(systems, req.System)
		if len(systems) == 1 {
			return "I think the answer is E1.", nil
		}
		return `{"era_id": "E1"}`, nil
	}

	client := NewClient(stub, Options{MaxReprompts: 2})

	resp, err := client.Invoke(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if resp.Content != `{"era_id": "E1"}` {
		t.Errorf("Unexpected content %q", resp.Content)
	}
	if len(systems) != 2 {
		t.Fatalf("Expected 2 dispatches, got %d", len(systems))
	}
	if strings.Contains(systems[0], "STRICT") {
		t.Error("Expected first dispatch without the strict suffix")
	}
	if !strings.Contains(systems[1], "STRICT") {
		t.Error("Expected reprompt to carry the strict suffix")
	}
}

func TestClient_RepromptsExhaustedIsPermanent(t *testing.T) {
	stub := NewStubProvider()
	stub.Respond = func(Request) (string, error) {
		return "never json", nil
	}

	client := NewClient(stub, Options{MaxReprompts: 1})

	_, err := client.Invoke(context.Background(), testRequest())
	if !model.IsPermanent(err) {
		t.Fatalf("Expected permanent classification, got %v", err)
	}
	if stub.Calls() != 2 {
		t.Errorf("Expected original call plus 1 reprompt, got %d", stub.Calls())
	}
}

func TestClient_RequestBudgetSuspendsThenDispatches(t *testing.T) {
	stub := NewStubProvider()
	stub.Respond = func(Request) (string, error) { return `{"ok": true}`, nil }

	client := NewClient(stub, Options{RequestsPerMinute: 120})
	// Shrink the window so the suspension is observable: burst of 2, one
	// refill every 20ms.
	client.requests = rate.NewLimiter(rate.Limit(50), 2)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := client.Invoke(context.Background(), testRequest()); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}
	elapsed := time.Since(start)

	// The third request exceeds the window: it suspends until a slot
	// refills, then dispatches. Nothing is dropped.
	if stub.Calls() != 3 {
		t.Errorf("Expected all 3 requests dispatched, got %d", stub.Calls())
	}
	if elapsed < 15*time.Millisecond {
		t.Errorf("Expected the third request to wait for the budget, elapsed %v", elapsed)
	}
}

func TestClient_TokenWaitCappedAtBurst(t *testing.T) {
	stub := NewStubProvider()
	stub.Respond = func(Request) (string, error) { return `{"ok": true}`, nil }

	// A request estimated above the full per-minute allowance must still
	// dispatch rather than deadlock on an unfillable reservation.
	client := NewClient(stub, Options{TokensPerMinute: 60})

	req := testRequest()
	req.EstTokens = 10000

	done := make(chan error, 1)
	go func() {
		_, err := client.Invoke(context.Background(), req)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Invoke deadlocked on token budget")
	}
}

func TestMeter_Accumulates(t *testing.T) {
	m := NewMeter(0.1, 0.2)

	cost := m.RecordCall(1000, 500)
	want := 0.1 + 0.5*0.2
	if diff := cost - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected cost %f, got %f", want, cost)
	}

	m.RecordCall(1000, 500)
	m.RecordCacheHit()

	usage := m.Snapshot()
	if usage.Calls != 2 || usage.CacheHits != 1 {
		t.Errorf("Expected 2 calls and 1 hit, got %d and %d", usage.Calls, usage.CacheHits)
	}
	if usage.Tokens != 3000 {
		t.Errorf("Expected 3000 tokens, got %d", usage.Tokens)
	}
}
