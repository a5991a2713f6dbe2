package events

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"sudooom.fedi.sync/internal/config"
)

// Connect 连接 NATS，name 用于在服务端区分各个守护进程
func Connect(cfg config.NATSConfig, name string) (*nats.Conn, error) {
	logger := slog.Default().With("component", "nats", "name", name)

	return nats.Connect(cfg.URL,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			// 断开期间的事件与失效通知会丢失，重连后由下一次 REFRESH 补齐
			logger.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", nc.ConnectedUrl())
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("NATS async error", "subject", subject, "error", err)
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	)
}

// Drain 排空订阅后关闭连接
func Drain(nc *nats.Conn) {
	if nc == nil {
		return
	}
	if err := nc.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", "error", err)
		nc.Close()
	}
}
