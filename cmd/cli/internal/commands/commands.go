package commands

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type Globals struct {
	Debug   bool
	Version string
}

// readToken returns the argument when given, otherwise the token is read
// from stdin so scanners can be piped straight in.
func readToken(arg string) (string, error) {
	if arg != "" {
		return strings.TrimSpace(arg), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read token from stdin: %w", err)
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("no token given")
	}

	return token, nil
}
