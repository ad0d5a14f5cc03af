package status

import "fmt"

const maxErrorBody = 128

// RequestError reports a transport failure (Status is 0) or a non-2xx reply.
type RequestError struct {
	Path   string
	Status int
	Body   string
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		if e.Body != "" {
			return fmt.Sprintf("request %s: status %d: %s", e.Path, e.Status, e.Body)
		}
		return fmt.Sprintf("request %s: status %d", e.Path, e.Status)
	}
	return fmt.Sprintf("request %s: %v", e.Path, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError reports a body that is not a JSON object.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func snippet(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
