// Package doctor provides environment preflight checks for nbtok.
package doctor

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/example/go-nbtok/internal/tokenizer"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Canary is tokenized by the self-test; CanaryTokens is the expected result.
const Canary = "Det var 10 000 personer der, jf. § 2-5."

var CanaryTokens = []string{"Det", "var", "10 000", "personer", "der", ",", "jf.", "§", "2-5", "."}

// Oldest Go release nbtok is supported on.
const minGoMajor, minGoMinor = 1, 23

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// GoVersion returns the runtime Go version, e.g. "go1.25.1".
	GoVersion VersionFunc
	// Backend is the configured tokenizer backend name.
	Backend string
	// ModelPath is the SentencePiece model, checked only for that backend.
	ModelPath string
	// LoadModel, if set, loads ModelPath to verify it is a usable model.
	LoadModel func(path string) error
	// Tokenize runs the self-test. Nil skips it.
	Tokenize func(text string) []string
	// StorePath is the frequency database. Empty skips the check.
	StorePath string
	// OpenStore opens and closes StorePath. Nil only checks the directory.
	OpenStore func(path string) error
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- Go runtime -------------------------------------------------------
	if cfg.GoVersion != nil {
		ver, err := cfg.GoVersion()
		if err != nil {
			res.fail(fmt.Sprintf("go runtime: %v", err))
			fmt.Fprintf(w, "%s go runtime: unknown (%v)\n", FailMark, err)
		} else if goErr := checkGoVersion(ver); goErr != nil {
			res.fail(fmt.Sprintf("go runtime: %v", goErr))
			fmt.Fprintf(w, "%s go runtime %s: %v\n", FailMark, ver, goErr)
		} else {
			fmt.Fprintf(w, "%s go runtime: %s\n", PassMark, ver)
		}
	}

	// ---- backend ----------------------------------------------------------
	backend, err := tokenizer.NormalizeBackend(cfg.Backend)
	if err != nil {
		res.fail(fmt.Sprintf("backend: %v", err))
		fmt.Fprintf(w, "%s backend: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s backend: %s\n", PassMark, backend)
	}

	// ---- SentencePiece model ----------------------------------------------
	if backend == tokenizer.BackendSentencePiece {
		checkModel(cfg, w, &res)
	}

	// ---- self-test --------------------------------------------------------
	if cfg.Tokenize != nil {
		got := cfg.Tokenize(Canary)
		if !slices.Equal(got, CanaryTokens) {
			res.fail(fmt.Sprintf("self-test: got %q, want %q", got, CanaryTokens))
			fmt.Fprintf(w, "%s self-test: unexpected tokens %q\n", FailMark, got)
		} else {
			fmt.Fprintf(w, "%s self-test: %d tokens\n", PassMark, len(got))
		}
	}

	// ---- frequency store --------------------------------------------------
	if cfg.StorePath != "" {
		checkStore(cfg, w, &res)
	}

	return res
}

func checkModel(cfg Config, w io.Writer, res *Result) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		res.fail(fmt.Sprintf("tokenizer model %q: %v", cfg.ModelPath, err))
		fmt.Fprintf(w, "%s tokenizer model %s: not found\n", FailMark, cfg.ModelPath)
		return
	}

	fmt.Fprintf(w, "%s tokenizer model: %s\n", PassMark, cfg.ModelPath)

	if cfg.LoadModel == nil {
		return
	}

	if err := cfg.LoadModel(cfg.ModelPath); err != nil {
		res.fail(fmt.Sprintf("tokenizer model load: %v", err))
		fmt.Fprintf(w, "%s tokenizer model load: %v\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s tokenizer model load: ok\n", PassMark)
	}
}

func checkStore(cfg Config, w io.Writer, res *Result) {
	if cfg.OpenStore == nil {
		dir := dirOf(cfg.StorePath)
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			res.fail(fmt.Sprintf("store directory %q: not found", dir))
			fmt.Fprintf(w, "%s store directory %s: not found\n", FailMark, dir)
			return
		}

		fmt.Fprintf(w, "%s store directory: %s\n", PassMark, dir)
		return
	}

	if err := cfg.OpenStore(cfg.StorePath); err != nil {
		res.fail(fmt.Sprintf("store %q: %v", cfg.StorePath, err))
		fmt.Fprintf(w, "%s store %s: %v\n", FailMark, cfg.StorePath, err)
	} else {
		fmt.Fprintf(w, "%s store: %s\n", PassMark, cfg.StorePath)
	}
}

func dirOf(path string) string {
	i := strings.LastIndexAny(path, `/\`)
	switch {
	case i < 0:
		return "."
	case i == 0:
		return path[:1]
	default:
		return path[:i]
	}
}

// checkGoVersion returns an error if ver is older than the minimum release.
// ver is expected to look like "go1.25.1" or "1.25".
func checkGoVersion(ver string) error {
	major, minor, err := parseMajorMinor(strings.TrimPrefix(ver, "go"))
	if err != nil {
		return fmt.Errorf("cannot parse %q: %w", ver, err)
	}
	if major != minGoMajor {
		return fmt.Errorf("requires Go %d, got %d", minGoMajor, major)
	}
	if minor < minGoMinor {
		return fmt.Errorf("requires Go >=%d.%d, got %d.%d", minGoMajor, minGoMinor, major, minor)
	}
	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	parts := strings.SplitN(ver, ".", 3)
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("unexpected version format %q", ver)
	}
	major, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad major in %q: %w", ver, err)
	}
	// Pre-release suffixes such as "25rc1" count as the release they precede.
	minorText := parts[1]
	if i := strings.IndexFunc(minorText, func(r rune) bool { return r < '0' || r > '9' }); i > 0 {
		minorText = minorText[:i]
	}
	minor, err = strconv.Atoi(minorText)
	if err != nil {
		return 0, 0, fmt.Errorf("bad minor in %q: %w", ver, err)
	}
	return major, minor, nil
}
