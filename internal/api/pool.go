package api

import (
	"sync"

	"sudooom.fedi.sync/internal/metrics"
	"sudooom.fedi.sync/internal/model"
)

// Pool 按账号缓存客户端
type Pool struct {
	cfg     Config
	metrics *metrics.Metrics

	mu      sync.Mutex
	clients map[model.AccountID]*pooled
}

type pooled struct {
	token  string
	domain string
	client *Client
}

// NewPool 创建客户端池
func NewPool(cfg Config, m *metrics.Metrics) *Pool {
	return &Pool{
		cfg:     cfg,
		metrics: m,
		clients: make(map[model.AccountID]*pooled),
	}
}

// Client 返回账号对应的客户端，账号的域名或令牌变化时重建
func (p *Pool) Client(account *model.Account) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[account.ID]; ok && c.token == account.AccessToken && c.domain == account.Domain {
		return c.client, nil
	}

	client, err := NewClient("https://"+account.Domain, account.AccessToken, p.cfg, p.metrics)
	if err != nil {
		return nil, err
	}
	p.clients[account.ID] = &pooled{
		token:  account.AccessToken,
		domain: account.Domain,
		client: client,
	}
	return client, nil
}

// Remove 移除账号的客户端
func (p *Pool) Remove(id model.AccountID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.clients, id)
}
