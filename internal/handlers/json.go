package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
)

// jsonUnmarshal decodes exactly one JSON value into v.
func jsonUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after the JSON body")
	}
	return nil
}
