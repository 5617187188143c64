package client

import "fmt"

// PreconditionError reports a request rejected before any network traffic:
// an empty credential, model, or message list. The request is never
// transmitted when this error is returned.
type PreconditionError struct {
	// Field names the missing input: "credential", "model", or "messages".
	Field string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("chat completion: missing %s", e.Field)
}

// TransportError reports a request that could not be delivered or whose
// response could not be read: DNS, connect, TLS, or context failures. A
// response that arrived with a non-2xx status is not a TransportError.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("chat completion: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
