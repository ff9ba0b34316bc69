// Package testutil provides shared skip helpers and assertions for tests.
//
// Each Require helper calls t.Skip with a clear human-readable reason when the
// named prerequisite is absent, so integration tests remain runnable in
// partial environments without failing noisily.
//
// Typical usage:
//
//	func TestMyIntegration(t *testing.T) {
//	    model := testutil.RequireSentencePieceModel(t)
//	    db := testutil.RequireSQLite(t)
//	    ...
//	}
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ModelPathEnv overrides the SentencePiece model lookup.
const ModelPathEnv = "NBTOK_TOKENIZER_MODEL_PATH"

// DefaultModelPath is the model location relative to the repository root.
var DefaultModelPath = filepath.Join("models", "tokenizer.model")

// RequireSentencePieceModel returns the path of a SentencePiece model or
// skips the test. It checks NBTOK_TOKENIZER_MODEL_PATH first, then looks for
// models/tokenizer.model in the working directory and each of its parents.
func RequireSentencePieceModel(tb testing.TB) string {
	tb.Helper()

	if p := os.Getenv(ModelPathEnv); p != "" {
		_, err := os.Stat(p)
		if err != nil {
			tb.Skipf("SentencePiece model not found at %s=%q", ModelPathEnv, p)
		}

		return p
	}

	p, ok := FindUp(DefaultModelPath)
	if !ok {
		tb.Skipf("SentencePiece model %q not found; set %s to override", DefaultModelPath, ModelPathEnv)
	}

	return p
}

// RequireSQLite opens an in-memory SQLite database or skips the test when the
// driver is unusable (for example a CGO_ENABLED=0 build). The database is
// closed when the test ends.
func RequireSQLite(tb testing.TB) *sqlx.DB {
	tb.Helper()

	db, err := sqlx.Open("sqlite3", ":memory:")
	if err == nil {
		err = db.Ping()
	}

	if err != nil {
		tb.Skipf("sqlite3 driver not available: %v", err)
		return nil
	}

	tb.Cleanup(func() { _ = db.Close() })

	return db
}

// FindUp looks for rel in the working directory and each parent directory.
func FindUp(rel string) (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}

	for {
		p := filepath.Join(dir, rel)
		if _, err := os.Stat(p); err == nil {
			return p, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}

		dir = parent
	}
}
