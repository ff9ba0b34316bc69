package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/example/go-nbtok/internal/text"
	"github.com/example/go-nbtok/internal/tokenizer"
)

// input is one unit of text to process, named for diagnostics and output.
type input struct {
	Name string
	Text string
}

// readInputs returns the --text value, the contents of each file, or stdin
// when neither is given. The file name "-" also reads stdin.
func readInputs(textFlag string, files []string, stdin io.Reader) ([]input, error) {
	if textFlag != "" && len(files) > 0 {
		return nil, errors.New("--text and file arguments are mutually exclusive")
	}

	if textFlag != "" {
		in, err := newInput("--text", []byte(textFlag))
		if err != nil {
			return nil, err
		}
		return []input{in}, nil
	}

	if len(files) == 0 {
		files = []string{"-"}
	}

	inputs := make([]input, 0, len(files))
	for _, path := range files {
		data, err := readSource(path, stdin)
		if err != nil {
			return nil, err
		}

		in, err := newInput(path, data)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}

	return inputs, nil
}

func newInput(name string, data []byte) (input, error) {
	if !utf8.Valid(data) {
		return input{}, fmt.Errorf("%s: %w: input is not valid UTF-8", name, tokenizer.ErrInvalidArgument)
	}
	return input{Name: name, Text: string(data)}, nil
}

func readSource(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileError(path, err)
	}
	return data, nil
}

// fileError turns an I/O failure into a message fit for the terminal.
func fileError(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%s: file not found", path)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: permission denied", path)
	default:
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			err = pathErr.Err
		}
		return fmt.Errorf("%s: cannot read file: %w", path, err)
	}
}

// prepare applies the configured normalization. Whitespace is kept so token
// offsets still refer to the cleaned text.
func prepare(s string, normalize bool) string {
	if !normalize {
		return s
	}
	return text.Clean(s)
}
