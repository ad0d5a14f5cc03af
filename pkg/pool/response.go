package pool

type response struct {
	status int
	body   []byte
}

// NewResponse copies body so the transport may reuse its buffer.
func NewResponse(status int, body []byte) Response {
	return response{
		status: status,
		body:   append([]byte(nil), body...),
	}
}

func (r response) StatusCode() int { return r.status }
func (r response) Body() []byte    { return r.body }
