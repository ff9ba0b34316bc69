package tokenizer

import "fmt"

// Kind identifies the rule that produced a token.
type Kind int

const (
	Symbol       Kind = iota // catch-all single rune
	Word                     // letters/digits with internal connectors
	Initial                  // single uppercase letter and period
	Abbreviation             // entry from the abbreviation table
	Number                   // integer, decimal, grouped or dotted number
	Ellipsis                 // three or more periods
	Compound                 // number fused to a word by a hyphen
	Section                  // paragraph mark or the number following it
)

var kindNames = [...]string{
	Symbol:       "symbol",
	Word:         "word",
	Initial:      "initial",
	Abbreviation: "abbreviation",
	Number:       "number",
	Ellipsis:     "ellipsis",
	Compound:     "compound",
	Section:      "section",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is a slice of the input text. text[Start:End] == Text always holds.
type Token struct {
	Text  string
	Start int
	End   int
	Kind  Kind
}

// Tokens is the value object handed to downstream consumers such as
// frequency counters.
type Tokens struct {
	List  []string `json:"tokens"`
	Count int      `json:"count"`
}

// NewTokens tokenizes text with the default Norwegian tokenizer.
func NewTokens(text string) Tokens {
	return Default().NewTokens(text)
}

// TokensOf wraps an already tokenized list.
func TokensOf(list []string) Tokens {
	if list == nil {
		list = []string{}
	}
	return Tokens{List: list, Count: len(list)}
}
