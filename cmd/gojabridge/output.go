package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}

// parseArgs decodes each argument as a JSON value.
func parseArgs(args []string) ([]any, error) {
	values := make([]any, len(args))
	for i, arg := range args {
		if err := json.Unmarshal([]byte(arg), &values[i]); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
	}
	return values, nil
}

// readSource returns the script name and source, from file (- for stdin),
// the first argument, or stdin if neither is given.
func readSource(cmd *cobra.Command, file string, args []string) (name, src string, err error) {
	switch {
	case file != "" && len(args) != 0:
		return "", "", fmt.Errorf("source argument and --file are mutually exclusive")
	case len(args) != 0:
		return "", args[0], nil
	case file != "" && file != "-":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", "", err
		}
		return file, string(b), nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", err
		}
		return "<stdin>", string(b), nil
	}
}
