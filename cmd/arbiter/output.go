package main

import (
	"fmt"
	"io"
	"os"
)

func writeOutput(stdout io.Writer, path string, payload []byte) error {
	if path == "" {
		if _, err := stdout.Write(payload); err != nil {
			return err
		}
		_, err := fmt.Fprintln(stdout)
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
