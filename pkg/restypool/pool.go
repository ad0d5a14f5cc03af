package restypool

import (
	"context"
	"sync"

	"swimstatus/pkg/config"
	"swimstatus/pkg/pool"

	resty "resty.dev/v3"
)

var _ pool.Client = (*ClientPool)(nil)

type ClientPool struct {
	clients   []*resty.Client
	spin      pool.RoundRobin
	cfg       config.Config
	closeOnce sync.Once
}

func New(cfg config.Config) *ClientPool {
	if cfg.Size <= 0 {
		cfg.Size = config.DefaultConfig().Size
	}

	cs := make([]*resty.Client, 0, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		cs = append(cs, newRestyClient(cfg))
	}
	return &ClientPool{clients: cs, cfg: cfg}
}

func (p *ClientPool) next() *resty.Client {
	return p.clients[p.spin.Next(len(p.clients))]
}

func (p *ClientPool) Get(ctx context.Context, path string) (pool.Response, error) {
	res, err := p.next().R().SetContext(ctx).Get(path)
	if err != nil {
		return nil, err
	}
	return pool.NewResponse(res.StatusCode(), res.Bytes()), nil
}

func (p *ClientPool) Post(ctx context.Context, path string, body any) (pool.Response, error) {
	res, err := p.next().R().
		SetContext(ctx).
		SetHeader("Content-Type", pool.ContentTypeJSON).
		SetBody(body).
		Post(path)
	if err != nil {
		return nil, err
	}
	return pool.NewResponse(res.StatusCode(), res.Bytes()), nil
}

func (p *ClientPool) Close() {
	p.closeOnce.Do(func() {
		for _, c := range p.clients {
			_ = c.Close()
		}
	})
}
