package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// ack is printed after a successful create. The assigned id is not reported.
const ack = "{}"

// writeJSON writes v as one line of JSON.
func writeJSON(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// parseID parses a positional id argument.
func parseID(name, s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be an unsigned integer", name, s)
	}
	return id, nil
}
