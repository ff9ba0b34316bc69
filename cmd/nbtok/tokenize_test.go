package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const twoSentences = "Han bodde i Oslo jf. kartet. Det var 10 000 personer der."

func TestTokenizeCmd_Lines(t *testing.T) {
	out, err := execute(t, "", "tokenize", "--text", "Han bodde i Oslo jf. kartet.")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	want := "Han\nbodde\ni\nOslo\njf.\nkartet\n.\n"
	if out != want {
		t.Errorf("output = %q; want %q", out, want)
	}
}

func TestTokenizeCmd_Stdin(t *testing.T) {
	out, err := execute(t, "Se § 2-5.", "tokenize")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	if out != "Se\n§\n2-5\n.\n" {
		t.Errorf("output = %q", out)
	}
}

func TestTokenizeCmd_Files(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")

	if err := os.WriteFile(a, []byte("Det skjedde 17. mai."), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(b, []byte("1900-tallet"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	out, err := execute(t, "", "tokenize", a, b)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	want := "Det\nskjedde\n17.\nmai\n.\n1900-tallet\n"
	if out != want {
		t.Errorf("output = %q; want %q", out, want)
	}
}

func TestTokenizeCmd_MissingFile(t *testing.T) {
	_, err := execute(t, "", "tokenize", "finnes-ikke.txt")
	if err == nil {
		t.Fatal("expected error for missing file")
	}

	if err.Error() != "finnes-ikke.txt: file not found" {
		t.Errorf("error = %q", err)
	}
}

func TestTokenizeCmd_Sentences(t *testing.T) {
	out, err := execute(t, "", "tokenize", "--sentences", "--text", twoSentences)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	want := "Han\nbodde\ni\nOslo\njf.\nkartet\n.\n\nDet\nvar\n10 000\npersoner\nder\n.\n"
	if out != want {
		t.Errorf("output = %q; want %q", out, want)
	}
}

func TestTokenizeCmd_SentencesBatched(t *testing.T) {
	out, err := execute(t, "", "tokenize", "--sentences", "--max-tokens", "20", "--text", twoSentences)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	if strings.Contains(out, "\n\n") {
		t.Errorf("both sentences fit in one batch; got %q", out)
	}

	if got := strings.Count(out, "\n"); got != 13 {
		t.Errorf("want 13 token lines, got %d", got)
	}
}

func TestTokenizeCmd_Offsets(t *testing.T) {
	out, err := execute(t, "", "tokenize", "--offsets", "--text", "Se § 2-5.")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	want := "0\t2\tword\tSe\n" +
		"3\t5\tsection\t§\n" +
		"6\t9\tsection\t2-5\n" +
		"9\t10\tsymbol\t.\n"
	if out != want {
		t.Errorf("output = %q; want %q", out, want)
	}
}

func TestTokenizeCmd_JSON(t *testing.T) {
	out, err := execute(t, "", "tokenize", "--format", "json", "--sentences", "--text", twoSentences)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	var got struct {
		Source    string     `json:"source"`
		Tokens    []string   `json:"tokens"`
		Count     int        `json:"count"`
		Sentences [][]string `json:"sentences"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}

	if got.Source != "--text" || got.Count != 13 || len(got.Tokens) != 13 || len(got.Sentences) != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestTokenizeCmd_Normalize(t *testing.T) {
	out, err := execute(t, "", "tokenize", "--normalize", "--text", "bla\u030abær")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}

	if out != "blåbær\n" {
		t.Errorf("output = %q", out)
	}
}

func TestValidateTokenizeOptions(t *testing.T) {
	tests := []struct {
		name string
		opts tokenizeOptions
	}{
		{"bad format", tokenizeOptions{Format: "xml"}},
		{"offsets with sentences", tokenizeOptions{Format: "lines", Offsets: true, Sentences: true}},
		{"offsets as json", tokenizeOptions{Format: "json", Offsets: true}},
		{"negative max tokens", tokenizeOptions{Format: "lines", Sentences: true, MaxTokens: -1}},
		{"max tokens without sentences", tokenizeOptions{Format: "lines", MaxTokens: 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateTokenizeOptions(tt.opts); err == nil {
				t.Error("expected error")
			}
		})
	}

	if err := validateTokenizeOptions(tokenizeOptions{Format: "lines", Sentences: true, MaxTokens: 5}); err != nil {
		t.Errorf("valid options rejected: %v", err)
	}
}

func TestWriteTokens_OffsetsNeedNorwegianBackend(t *testing.T) {
	var buf bytes.Buffer

	err := writeTokens(&buf, fieldsTokenizer{}, []input{{Name: "-", Text: "a b"}}, tokenizeOptions{Format: "lines", Offsets: true})
	if err == nil {
		t.Fatal("expected error for a backend without offsets")
	}
}

func TestWriteTokens_TimedVariant(t *testing.T) {
	var (
		buf bytes.Buffer
		tok = &timedStub{}
	)

	opts := tokenizeOptions{Format: "lines", Timed: true}
	if err := writeTokens(&buf, tok, []input{{Name: "-", Text: "a b"}}, opts); err != nil {
		t.Fatalf("writeTokens: %v", err)
	}

	if tok.timed != 1 || tok.plain != 0 {
		t.Errorf("timed=%d plain=%d; want timed=1 plain=0", tok.timed, tok.plain)
	}

	if buf.String() != "a\nb\n" {
		t.Errorf("output = %q", buf.String())
	}
}

// fieldsTokenizer splits on whitespace and has no offsets.
type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

type timedStub struct {
	plain, timed int
}

func (s *timedStub) Tokenize(text string) []string {
	s.plain++
	return strings.Fields(text)
}

func (s *timedStub) TokenizeTimed(text string) []string {
	s.timed++
	return strings.Fields(text)
}
