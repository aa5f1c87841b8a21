package config

import (
	"time"

	"github.com/rickgao/chatwire/internal/connection"
	"github.com/rickgao/chatwire/internal/reconnect"
)

// Config is the root configuration for a chatwire process.
type Config struct {
	Client     ClientConfig     `yaml:"client"`
	Server     ServerConfig     `yaml:"server"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Connection ConnectionConfig `yaml:"connection"`
	Admin      AdminConfig      `yaml:"admin"`
	Log        LogConfig        `yaml:"log"`
}

// ClientConfig identifies this client.
type ClientConfig struct {
	ID string `yaml:"id"` // Pinned identity; empty generates one at startup
}

// ServerConfig locates the realtime endpoint.
type ServerConfig struct {
	Host   string `yaml:"host"`   // host[:port]
	Secure bool   `yaml:"secure"` // wss instead of ws
}

// ReconnectConfig holds backoff settings.
type ReconnectConfig struct {
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"`
}

// ConnectionConfig holds per-connection WebSocket settings.
type ConnectionConfig struct {
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	PingInterval     time.Duration `yaml:"ping_interval"`
	PingTimeout      time.Duration `yaml:"ping_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	QueueSize        int           `yaml:"queue_size"`
}

// AdminConfig holds the admin HTTP server settings.
type AdminConfig struct {
	Port        int    `yaml:"port"`
	MetricsPath string `yaml:"metrics_path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Policy returns the reconnect policy described by the config.
func (c *Config) Policy() reconnect.Policy {
	return reconnect.Policy{
		BaseDelay:   c.Reconnect.BaseDelay,
		Multiplier:  c.Reconnect.Multiplier,
		MaxDelay:    c.Reconnect.MaxDelay,
		MaxAttempts: c.Reconnect.MaxAttempts,
	}
}

// ManagerConfig converts the config into connection manager settings.
func (c *Config) ManagerConfig() connection.ManagerConfig {
	return connection.ManagerConfig{
		Host:     c.Server.Host,
		Secure:   c.Server.Secure,
		ClientID: c.Client.ID,
		Policy:   c.Policy(),
		Client: connection.ClientConfig{
			HandshakeTimeout: c.Connection.HandshakeTimeout,
			PingInterval:     c.Connection.PingInterval,
			PingTimeout:      c.Connection.PingTimeout,
			WriteTimeout:     c.Connection.WriteTimeout,
			QueueSize:        c.Connection.QueueSize,
		},
	}
}
