package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cheggaaa/pb"
)

// ErrChecksumMismatch is returned when a file's SHA-256 differs from the
// expected value.
var ErrChecksumMismatch = errors.New("checksum mismatch")

type DownloadOptions struct {
	URL     string
	SHA256  string // empty skips verification
	OutPath string
	Token   string // sent as a bearer token when set
	Client  *http.Client
	// Progress receives a byte progress bar. Nil disables it.
	Progress io.Writer
	Stdout   io.Writer
}

type AccessDeniedError struct {
	URL string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied for %s; provide HF_TOKEN or --token", e.URL)
}

var shaHexPattern = regexp.MustCompile(`(?i)^[a-f0-9]{64}$`)

// Download fetches opts.URL into opts.OutPath and returns the file's SHA-256.
// An existing file with the expected checksum is kept as is. The file is
// written to a temporary name and renamed into place once verified.
func Download(ctx context.Context, opts DownloadOptions) (string, error) {
	if opts.URL == "" {
		return "", errors.New("url is required")
	}
	if opts.OutPath == "" {
		return "", errors.New("out path is required")
	}
	if opts.SHA256 != "" && !isSHA256Hex(opts.SHA256) {
		return "", fmt.Errorf("invalid sha256 %q", opts.SHA256)
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}

	expected := strings.ToLower(opts.SHA256)

	if expected != "" {
		ok, err := existingMatches(opts.OutPath, expected)
		if err != nil {
			return "", err
		}
		if ok {
			fmt.Fprintf(opts.Stdout, "skip %s (checksum match)\n", opts.OutPath)
			return expected, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
		return "", fmt.Errorf("create out dir: %w", err)
	}

	fmt.Fprintf(opts.Stdout, "download %s -> %s\n", opts.URL, opts.OutPath)

	tmp := opts.OutPath + ".tmp"
	actual, err := fetch(ctx, opts, tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	if expected != "" && actual != expected {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("%w for %s: expected %s got %s", ErrChecksumMismatch, opts.OutPath, expected, actual)
	}

	if err := os.Rename(tmp, opts.OutPath); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("move temp file into place: %w", err)
	}

	if expected == "" {
		fmt.Fprintf(opts.Stdout, "saved %s (sha256=%s, not verified)\n", opts.OutPath, actual)
	} else {
		fmt.Fprintf(opts.Stdout, "verified %s (sha256=%s)\n", opts.OutPath, actual)
	}

	return actual, nil
}

func fetch(ctx context.Context, opts DownloadOptions, dst string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	resp, err := opts.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", &AccessDeniedError{URL: opts.URL}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download failed for %s: %s", opts.URL, resp.Status)
	}

	fh, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	h := sha256.New()
	var w io.Writer = io.MultiWriter(fh, h)

	var bar *pb.ProgressBar
	if opts.Progress != nil {
		// Unknown lengths (-1) show a plain byte counter.
		bar = pb.New64(max(resp.ContentLength, 0)).SetUnits(pb.U_BYTES)
		bar.Output = opts.Progress
		bar.Start()
		w = &barWriter{w: w, bar: bar}
	}

	_, copyErr := io.Copy(w, resp.Body)
	if bar != nil {
		bar.Finish()
	}
	closeErr := fh.Close()

	if copyErr != nil {
		return "", fmt.Errorf("download read failed: %w", copyErr)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close temp file: %w", closeErr)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// barWriter advances a progress bar by every write.
type barWriter struct {
	w   io.Writer
	bar *pb.ProgressBar
}

func (b *barWriter) Write(p []byte) (int, error) {
	n, err := b.w.Write(p)
	b.bar.Add(n)
	return n, err
}

func existingMatches(path, expected string) (bool, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat existing file: %w", err)
	}
	if fi.IsDir() {
		return false, fmt.Errorf("expected file at %s, found directory", path)
	}
	actual, err := FileSHA256(path)
	if err != nil {
		return false, err
	}
	return actual == expected, nil
}

func isSHA256Hex(v string) bool {
	return shaHexPattern.MatchString(v)
}

// FileSHA256 returns the hex SHA-256 of the file at path.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file for checksum: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("read file for checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
