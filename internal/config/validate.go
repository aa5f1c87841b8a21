package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rickgao/chatwire/internal/identity"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Client.ID != "" && !identity.Valid(c.Client.ID) {
		return fmt.Errorf("client.id %q is not a valid client id", c.Client.ID)
	}

	if c.Server.Host == "" {
		return errors.New("server.host is required")
	}
	if strings.Contains(c.Server.Host, "://") || strings.Contains(c.Server.Host, "/") {
		return fmt.Errorf("server.host must be host[:port], got %q", c.Server.Host)
	}

	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("reconnect.%w", err)
	}

	if c.Connection.PingInterval < 0 {
		return errors.New("connection.ping_interval must be >= 0")
	}
	if c.Connection.PingInterval > 0 && c.Connection.PingTimeout <= c.Connection.PingInterval {
		return fmt.Errorf("connection.ping_timeout (%v) must exceed ping_interval (%v)",
			c.Connection.PingTimeout, c.Connection.PingInterval)
	}
	if c.Connection.WriteTimeout <= 0 {
		return errors.New("connection.write_timeout must be > 0")
	}
	if c.Connection.QueueSize < 1 {
		return errors.New("connection.queue_size must be >= 1")
	}

	if c.Admin.Port < 1 || c.Admin.Port > 65535 {
		return fmt.Errorf("admin.port must be between 1 and 65535, got %d", c.Admin.Port)
	}
	if !strings.HasPrefix(c.Admin.MetricsPath, "/") {
		return fmt.Errorf("admin.metrics_path must start with /, got %q", c.Admin.MetricsPath)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}
