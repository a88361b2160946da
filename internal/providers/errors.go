package providers

import "fmt"

// HTTPError wraps a non-2xx provider response so the Provider Router can
// classify it by status code per its failover policy.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}
