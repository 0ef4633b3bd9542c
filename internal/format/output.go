package format

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the shape of every CLI response.
type Envelope struct {
	Data  any      `json:"data"`
	Hints []string `json:"_hints,omitempty"`
}

// Write wraps data in an Envelope and writes it as JSON.
func Write(w io.Writer, data any, pretty bool, hints ...string) error {
	return WriteJSON(w, Envelope{Data: data, Hints: hints}, pretty)
}

// WriteJSON writes strict JSON followed by a newline.
func WriteJSON(w io.Writer, v any, pretty bool) error {
	var b []byte
	var err error
	if pretty {
		b, err = json.MarshalIndent(v, "", "  ")
	} else {
		b, err = json.Marshal(v)
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, string(b))
	return err
}
