package pool

import "context"

// Client is the HTTP capability the status client is built on. Post encodes
// body as JSON and sends it with Content-Type: application/json.
type Client interface {
	Get(ctx context.Context, path string) (Response, error)
	Post(ctx context.Context, path string, body any) (Response, error)
	Close()
}

// Response is a fully read response; Body stays valid after the underlying
// transport buffers are released.
type Response interface {
	StatusCode() int
	Body() []byte
}

const ContentTypeJSON = "application/json"
