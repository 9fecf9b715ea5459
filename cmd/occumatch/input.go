package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// readInput returns the text of --input, or stdin when the flag is "-".
func readInput(cmd *cobra.Command) (string, error) {
	path, _ := cmd.Flags().GetString("input")
	if path == "" {
		return "", errors.New("--input is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("input is empty")
	}
	return text, nil
}
