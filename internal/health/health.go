package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"sudooom.fedi.sync/internal/model"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusDisabled     = "disabled"
)

const pingTimeout = 2 * time.Second

// Status 健康状态
type Status struct {
	Service  string `json:"service"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
	NATS     string `json:"nats"`
	Accounts int    `json:"accounts"`
}

// Healthy 未启用的组件不影响结果
func (s *Status) Healthy() bool {
	for _, c := range []string{s.Database, s.Redis, s.NATS} {
		if c == StatusDisconnected {
			return false
		}
	}
	return true
}

// AccountLister 列出已登录账号
type AccountLister interface {
	Accounts(ctx context.Context) ([]model.Account, error)
}

// Checker 健康检查器，nil 组件视为未启用
type Checker struct {
	service  string
	db       *pgxpool.Pool
	rdb      *redis.Client
	nc       *nats.Conn
	accounts AccountLister
}

// NewChecker 创建健康检查器
func NewChecker(service string, db *pgxpool.Pool, rdb *redis.Client, nc *nats.Conn, accounts AccountLister) *Checker {
	return &Checker{
		service:  service,
		db:       db,
		rdb:      rdb,
		nc:       nc,
		accounts: accounts,
	}
}

// Check 执行健康检查
func (h *Checker) Check(ctx context.Context) *Status {
	status := &Status{
		Service:  h.service,
		Database: StatusDisabled,
		Redis:    StatusDisabled,
		NATS:     StatusDisabled,
	}

	// 检查 PostgreSQL
	if h.db != nil {
		dbCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		status.Database = connected(h.db.Ping(dbCtx) == nil)
	}

	// 检查 Redis
	if h.rdb != nil {
		redisCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		status.Redis = connected(h.rdb.Ping(redisCtx).Err() == nil)
	}

	// 检查 NATS
	if h.nc != nil {
		status.NATS = connected(h.nc.IsConnected())
	}

	if h.accounts != nil {
		if accounts, err := h.accounts.Accounts(ctx); err == nil {
			status.Accounts = len(accounts)
		}
	}

	return status
}

// IsHealthy 检查是否健康
func (h *Checker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx).Healthy()
}

// ServeHTTP HTTP 健康检查端点
func (h *Checker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	status := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if status.Healthy() {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}

// ReadyHandler 就绪检查端点
func (h *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.IsHealthy(r.Context()) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	}
}

func connected(ok bool) string {
	if ok {
		return StatusConnected
	}
	return StatusDisconnected
}
