// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"time"

	"crm-decision-engine/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
)

// Client wraps the Zeebe gRPC client used to open evaluator job workers.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	Retry                  RetryConfig
}

// RetryConfig bounds the exponential backoff used while the broker is coming up.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 5,
	BaseDelay:   1 * time.Second,
	MaxDelay:    10 * time.Second,
}

// Connect dials the gateway and waits for a topology response, retrying with backoff.
func Connect(ctx context.Context, cfg *ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = DefaultRetryConfig
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Retry.MaxAttempts; attempt++ {
		c, err := dial(ctx, cfg)
		if err == nil {
			return c, nil
		}
		lastErr = err

		if attempt == cfg.Retry.MaxAttempts {
			break
		}
		delay := backoff(cfg.Retry, attempt)
		log.Warn("zeebe gateway not ready, retrying", map[string]interface{}{
			"address": cfg.GatewayAddress,
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to zeebe cancelled after %d attempts: %w", attempt, ctx.Err())
		}
	}
	return nil, fmt.Errorf("connect to zeebe at %s failed after %d attempts: %w",
		cfg.GatewayAddress, cfg.Retry.MaxAttempts, lastErr)
}

func dial(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	zc, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("create zeebe client: %w", err)
	}

	c := &Client{client: zc, config: cfg}
	if err := c.HealthCheck(ctx); err != nil {
		_ = zc.Close()
		return nil, err
	}
	return c, nil
}

func backoff(rc RetryConfig, attempt int) time.Duration {
	delay := rc.BaseDelay * time.Duration(1<<(attempt-1))
	if delay > rc.MaxDelay {
		return rc.MaxDelay
	}
	return delay
}

// Zeebe exposes the raw client for opening job workers.
func (c *Client) Zeebe() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

// HealthCheck asks the gateway for its topology.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
