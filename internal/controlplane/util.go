package controlplane

import (
	"encoding/json"
	"errors"
)

var errNotConfigured = errors.New("control plane: handler not configured")

func jsonUnmarshal(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
