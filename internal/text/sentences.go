package text

import "strings"

// Sentences groups a token stream into sentences. A sentence ends after a
// token made only of terminal punctuation (".", "!", "?", "...", "?!") and
// any closing quotes or brackets that directly follow it. Trailing tokens
// without a terminator form a final sentence.
func Sentences(tokens []string) [][]string {
	var out [][]string

	start := 0
	for i := 0; i < len(tokens); i++ {
		if !isTerminal(tokens[i]) {
			continue
		}

		for i+1 < len(tokens) && isCloser(tokens[i+1]) {
			i++
		}

		out = append(out, tokens[start:i+1])
		start = i + 1
	}

	if start < len(tokens) {
		out = append(out, tokens[start:])
	}

	return out
}

// Batch groups consecutive sentences into batches of at most maxTokens
// tokens. A sentence longer than maxTokens forms a batch on its own. If
// maxTokens is 0 every sentence is its own batch.
func Batch(sentences [][]string, maxTokens int) [][]string {
	var (
		batches [][]string
		current []string
	)

	for _, s := range sentences {
		if len(current) > 0 && (maxTokens <= 0 || len(current)+len(s) > maxTokens) {
			batches = append(batches, current)
			current = nil
		}

		current = append(current, s...)
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches
}

func isTerminal(tok string) bool {
	return tok != "" && strings.Trim(tok, ".!?…") == ""
}

func isCloser(tok string) bool {
	switch tok {
	case "»", "”", "’", "\"", "'", ")", "]", "}":
		return true
	}

	return false
}
