package model

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/example/go-nbtok/internal/testutil"
	"github.com/example/go-nbtok/internal/tokenizer"
)

// sha256("hello")
const helloSHA = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestPinnedSourceDefault(t *testing.T) {
	src, err := PinnedSource(DefaultSource)
	if err != nil {
		t.Fatalf("PinnedSource: %v", err)
	}
	if src.URL == "" || src.Filename != "tokenizer.model" {
		t.Fatalf("unexpected source %+v", src)
	}
	if !isSHA256Hex(src.SHA256) {
		t.Fatalf("pinned checksum %q is not a sha256", src.SHA256)
	}
}

func TestPinnedSourceUnknown(t *testing.T) {
	_, err := PinnedSource("nope")
	if err == nil || !strings.Contains(err.Error(), DefaultSource) {
		t.Fatalf("want error listing known sources, got %v", err)
	}
}

func TestExistingMatches(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, "x.bin")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ok, err := existingMatches(p, helloSHA)
	if err != nil {
		t.Fatalf("existingMatches error: %v", err)
	}
	if !ok {
		t.Fatal("expected checksum match")
	}

	ok, err = existingMatches(filepath.Join(tmp, "missing.bin"), helloSHA)
	if err != nil || ok {
		t.Fatalf("missing file: ok=%v err=%v", ok, err)
	}

	if _, err := existingMatches(tmp, helloSHA); err == nil {
		t.Fatal("expected error for a directory")
	}
}

func TestDownload(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "models", "tokenizer.model")

	var progress syncBuffer
	sum, err := Download(context.Background(), DownloadOptions{
		URL:      srv.URL,
		SHA256:   strings.ToUpper(helloSHA),
		OutPath:  out,
		Token:    "secret",
		Progress: &progress,
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	if sum != helloSHA {
		t.Errorf("sum = %s", sum)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if b, _ := os.ReadFile(out); string(b) != "hello" {
		t.Errorf("file contents = %q", b)
	}
	if _, err := os.Stat(out + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	if progress.Len() == 0 {
		t.Error("expected progress output")
	}
}

func TestDownload_SkipsMatchingFile(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "tokenizer.model")
	if err := os.WriteFile(out, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var stdout bytes.Buffer
	if _, err := Download(context.Background(), DownloadOptions{URL: srv.URL, SHA256: helloSHA, OutPath: out, Stdout: &stdout}); err != nil {
		t.Fatalf("Download: %v", err)
	}

	if hits != 0 {
		t.Errorf("server hit %d times; want 0", hits)
	}
	if !strings.Contains(stdout.String(), "skip") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestDownload_ChecksumMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("tampered"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "tokenizer.model")

	_, err := Download(context.Background(), DownloadOptions{URL: srv.URL, SHA256: helloSHA, OutPath: out})
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("want ErrChecksumMismatch, got %v", err)
	}

	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("mismatching file must not be kept")
	}
}

func TestDownload_AccessDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), DownloadOptions{URL: srv.URL, OutPath: filepath.Join(t.TempDir(), "m")})

	var denied *AccessDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("want AccessDeniedError, got %v", err)
	}
}

func TestDownload_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := Download(context.Background(), DownloadOptions{URL: srv.URL, OutPath: filepath.Join(t.TempDir(), "m")})
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("want 404 error, got %v", err)
	}
}

func TestDownload_InvalidOptions(t *testing.T) {
	tests := []DownloadOptions{
		{OutPath: "m"},
		{URL: "http://example.invalid"},
		{URL: "http://example.invalid", OutPath: "m", SHA256: "abc"},
	}

	for _, opts := range tests {
		if _, err := Download(context.Background(), opts); err == nil {
			t.Errorf("Download(%+v) should fail", opts)
		}
	}
}

func TestVerify_Errors(t *testing.T) {
	if err := Verify(VerifyOptions{}); !errors.Is(err, tokenizer.ErrEmptyPath) {
		t.Errorf("empty path: got %v", err)
	}

	p := filepath.Join(t.TempDir(), "x.bin")
	if err := os.WriteFile(p, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := Verify(VerifyOptions{Path: p, SHA256: strings.Repeat("0", 64)}); !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("bad checksum: got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.model")
	if err := os.WriteFile(bad, []byte{0x07, 0x00}, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := Verify(VerifyOptions{Path: bad}); err == nil {
		t.Error("expected load error for a non-model file")
	}
}

func TestVerify_RealModel(t *testing.T) {
	path := testutil.RequireSentencePieceModel(t)

	var out bytes.Buffer
	if err := Verify(VerifyOptions{Path: path, Stdout: &out}); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if !strings.Contains(out.String(), "model ok") {
		t.Errorf("stdout = %q", out.String())
	}
}

// syncBuffer guards a bytes.Buffer shared with the progress bar goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
