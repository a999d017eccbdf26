package natsconn

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/viper"
)

// Client wraps the NATS connection used for request/reply calls to the
// remote product and payment services.
type Client struct {
	conn *nats.Conn
}

// Conn returns the underlying NATS connection.
func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// Close drains the connection for graceful shutdown.
func (c *Client) Close() error {
	return c.conn.Drain()
}

// MustNewClient creates a new NATS client.
func MustNewClient() *Client {
	url := viper.GetString("nats.url")
	if url == "" {
		url = nats.DefaultURL
	}

	conn, err := nats.Connect(url,
		nats.Name("orders-svc"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			slog.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		panic("Failed to connect to NATS: " + err.Error())
	}

	slog.Info("NATS connected", "url", url)

	return &Client{
		conn: conn,
	}
}
