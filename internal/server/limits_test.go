package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/go-nbtok/internal/server"
	"github.com/example/go-nbtok/internal/tokenizer"
)

// ---------------------------------------------------------------------------
// request validation and limits
// ---------------------------------------------------------------------------

func TestTokenize_OversizedTextRejectedAs413(t *testing.T) {
	h := server.NewHandler(tokenizer.Default(), server.WithMaxTextBytes(10))

	rec := post(h, "/tokenize", `{"text":"`+strings.Repeat("x", 11)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}

	var errBody map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	if errBody["error"] == "" {
		t.Error("want non-empty error field")
	}
}

func TestFrequencies_OversizedTextRejectedAs413(t *testing.T) {
	h := server.NewHandler(tokenizer.Default(), server.WithMaxTextBytes(4))

	rec := post(h, "/frequencies", `{"text":"hei hei"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
}

func TestTokenize_OversizedBodyWithSmallTextRejectedAs413(t *testing.T) {
	h := server.NewHandler(tokenizer.Default(), server.WithMaxTextBytes(10))

	body := `{"text":"hei","pad":"` + strings.Repeat("x", 1<<20) + `"}`

	rec := post(h, "/tokenize", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}

	var errBody map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&errBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}

	if !strings.Contains(errBody["error"], "request body exceeds") {
		t.Errorf("error = %q, want request body size message", errBody["error"])
	}
}

func TestFrequencies_OversizedBodyWithSmallTextRejectedAs413(t *testing.T) {
	h := server.NewHandler(tokenizer.Default(), server.WithMaxTextBytes(10))

	body := `{"text":"hei","lowercase":true,"pad":"` + strings.Repeat("x", 1<<20) + `"}`

	rec := post(h, "/frequencies", body)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}
}

func TestTokenize_EscapedTextWithinLimitIsAccepted(t *testing.T) {
	h := server.NewHandler(tokenizer.Default(), server.WithMaxTextBytes(8))

	// Eight one-byte characters written as six-byte escapes.
	rec := post(h, "/tokenize", `{"text":"`+strings.Repeat(`\u0061`, 8)+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTokenize_TextAtExactLimitIsAccepted(t *testing.T) {
	h := server.NewHandler(tokenizer.Default(), server.WithMaxTextBytes(5))

	rec := post(h, "/tokenize", `{"text":"hallo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 for exactly-limit text, got %d", rec.Code)
	}
}

func TestTokenize_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := server.NewHandler(
		&blockingTokenizer{release: release},
		server.WithRequestTimeout(20*time.Millisecond),
	)

	rec := post(h, "/tokenize", `{"text":"hei"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504 on timeout, got %d", rec.Code)
	}

	var errBody map[string]string
	_ = json.NewDecoder(rec.Body).Decode(&errBody)

	if errBody["error"] == "" {
		t.Error("want non-empty error field")
	}
}

// ---------------------------------------------------------------------------
// worker pool / concurrency throttling
// ---------------------------------------------------------------------------

func TestTokenize_ConcurrencyThrottling(t *testing.T) {
	const workers = 2
	const totalRequests = 5

	var (
		mu         sync.Mutex
		peak       int
		current    int32
		releaseAll = make(chan struct{})
	)

	tok := &countingTokenizer{
		onEnter: func() {
			n := int(atomic.AddInt32(&current, 1))

			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			<-releaseAll
		},
		onExit: func() { atomic.AddInt32(&current, -1) },
	}

	h := server.NewHandler(tok, server.WithWorkers(workers))

	var wg sync.WaitGroup

	codes := make([]int, totalRequests)
	for i := range totalRequests {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			codes[idx] = post(h, "/tokenize", `{"text":"hei."}`).Code
		}(i)
	}

	// Give goroutines time to enter the tokenizer.
	time.Sleep(50 * time.Millisecond)
	close(releaseAll)
	wg.Wait()

	mu.Lock()
	got := peak
	mu.Unlock()

	if got > workers {
		t.Errorf("peak concurrency %d exceeded worker limit %d", got, workers)
	}

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: want 200, got %d", i, code)
		}
	}
}

func TestTokenize_TimedOutCallKeepsWorkerSlot(t *testing.T) {
	const totalRequests = 4

	var (
		mu      sync.Mutex
		peak    int
		current int32
		release = make(chan struct{})
	)

	tok := &countingTokenizer{
		onEnter: func() {
			n := int(atomic.AddInt32(&current, 1))

			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			<-release
		},
		onExit: func() { atomic.AddInt32(&current, -1) },
	}

	h := server.NewHandler(tok,
		server.WithWorkers(1),
		server.WithRequestTimeout(10*time.Millisecond),
	)

	var wg sync.WaitGroup
	for range totalRequests {
		wg.Add(1)

		go func() {
			defer wg.Done()
			post(h, "/tokenize", `{"text":"hei."}`)
		}()
	}

	// Long enough for every request to time out at least once.
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	got := peak
	mu.Unlock()

	close(release)
	wg.Wait()

	if got != 1 {
		t.Errorf("peak concurrent tokenize calls = %d, want 1", got)
	}
}

func TestTokenize_WaiterCancelledWhileThrottled(t *testing.T) {
	release := make(chan struct{})
	h := server.NewHandler(&blockingTokenizer{release: release}, server.WithWorkers(1))

	// First request occupies the single worker slot.
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		post(h, "/tokenize", `{"text":"første"}`)
	}()

	time.Sleep(20 * time.Millisecond)

	// Second request waits for a worker; cancel its context.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tokenize", strings.NewReader(`{"text":"andre"}`)).WithContext(ctx)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 when waiter context cancelled, got %d", rec.Code)
	}

	close(release)
	<-firstDone
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// blockingTokenizer blocks until release is closed.
type blockingTokenizer struct {
	release chan struct{}
}

func (b *blockingTokenizer) Tokenize(text string) []string {
	<-b.release
	return strings.Fields(text)
}

// countingTokenizer calls onEnter/onExit around each Tokenize call.
type countingTokenizer struct {
	onEnter func()
	onExit  func()
}

func (c *countingTokenizer) Tokenize(text string) []string {
	c.onEnter()
	defer c.onExit()

	return strings.Fields(text)
}
