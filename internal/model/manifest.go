// Package model fetches and verifies SentencePiece tokenizer models.
package model

import (
	"fmt"
	"sort"
)

// Source is a downloadable tokenizer model pinned to a content checksum.
type Source struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	SHA256   string `json:"sha256"`
}

// DefaultSource names the source used when none is given.
const DefaultSource = "pocket-tts"

var pinned = map[string]Source{
	DefaultSource: {
		Name:     DefaultSource,
		URL:      "https://huggingface.co/kyutai/pocket-tts-without-voice-cloning/resolve/d4fdd22ae8c8e1cb3634e150ebeff1dab2d16df3/tokenizer.model",
		Filename: "tokenizer.model",
		SHA256:   "d461765ae179566678c93091c5fa6f2984c31bbe990bf1aa62d92c64d91bc3f6",
	},
}

// PinnedSource returns the pinned source called name.
func PinnedSource(name string) (Source, error) {
	src, ok := pinned[name]
	if !ok {
		return Source{}, fmt.Errorf("no pinned tokenizer model %q (known: %v)", name, PinnedNames())
	}
	return src, nil
}

// PinnedNames lists the pinned sources in name order.
func PinnedNames() []string {
	names := make([]string, 0, len(pinned))
	for name := range pinned {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
