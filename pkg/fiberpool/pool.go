package fiberpool

import (
	"context"
	"sync"

	"swimstatus/pkg/config"
	"swimstatus/pkg/pool"

	fibercli "github.com/gofiber/fiber/v3/client"
	"github.com/valyala/fasthttp"
)

var _ pool.Client = (*ClientPool)(nil)

// ClientPool spreads requests over fiber clients. fasthttp has no
// per-request context, so ctx is accepted for the interface and ignored;
// RequestTimeout bounds every call instead.
type ClientPool struct {
	clients   []*fibercli.Client
	bases     []*fasthttp.Client
	spin      pool.RoundRobin
	cfg       config.Config
	closeOnce sync.Once
}

func New(cfg config.Config) *ClientPool {
	if cfg.Size <= 0 {
		cfg.Size = config.DefaultConfig().Size
	}
	cs := make([]*fibercli.Client, 0, cfg.Size)
	bs := make([]*fasthttp.Client, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		base := newFiberBase(cfg)
		bs = append(bs, base)
		cs = append(cs, newFiberClient(cfg, base))
	}
	return &ClientPool{clients: cs, bases: bs, cfg: cfg}
}

func (p *ClientPool) next() *fibercli.Client {
	return p.clients[p.spin.Next(len(p.clients))]
}

func (p *ClientPool) Get(_ context.Context, path string) (pool.Response, error) {
	res, err := p.next().Get(path)
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return pool.NewResponse(res.StatusCode(), res.Body()), nil
}

func (p *ClientPool) Post(_ context.Context, path string, body any) (pool.Response, error) {
	res, err := p.next().Post(path, fibercli.Config{
		Header: map[string]string{"Content-Type": pool.ContentTypeJSON},
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	defer res.Close()
	return pool.NewResponse(res.StatusCode(), res.Body()), nil
}

func (p *ClientPool) Close() {
	p.closeOnce.Do(func() {
		for _, b := range p.bases {
			b.CloseIdleConnections()
		}
	})
}
