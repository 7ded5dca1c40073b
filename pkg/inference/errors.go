package inference

import "fmt"

// Failure reasons recorded on UpstreamError.
const (
	ReasonStatus   = "status"
	ReasonTimeout  = "timeout"
	ReasonNetwork  = "network"
	ReasonContract = "contract"
)

// UpstreamError describes a failed call to the inference service. Body holds
// the upstream response body when one was received.
type UpstreamError struct {
	StatusCode int
	Body       any
	Reason     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("inference service (%s, status %d): %v", e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("inference service (%s): %v", e.Reason, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Detail is what callers surface to clients: the upstream body when present,
// otherwise the transport error message.
func (e *UpstreamError) Detail() any {
	if e.Body != nil {
		return e.Body
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Reason
}
