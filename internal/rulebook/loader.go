package rulebook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"unicode/utf8"
)

var (
	// ErrNotFound reports a rulebook path that does not exist.
	ErrNotFound = errors.New("rulebook not found")
	// ErrUnreadable reports a rulebook that exists but cannot be read as text.
	ErrUnreadable = errors.New("rulebook unreadable")
)

// Load reads the rulebook document at path. An existing empty file is not an
// error; callers decide whether to review with zero rules.
func Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w at %q", ErrNotFound, path)
		}
		return "", fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %q is not valid UTF-8 text", ErrUnreadable, path)
	}

	return string(data), nil
}
