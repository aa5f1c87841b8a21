// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// A minimal file only needs server.host; everything else has a default.
//
//	client:
//	  id: ""                 # pin an identity; empty generates one per process
//	server:
//	  host: localhost:8000
//	  secure: false
//	reconnect:
//	  base_delay: 1s
//	  multiplier: 1.5
//	  max_delay: 30s
//	  max_attempts: 10
//	connection:
//	  handshake_timeout: 10s
//	  ping_interval: 30s
//	  ping_timeout: 60s
//	  write_timeout: 5s
//	  queue_size: 256
//	admin:
//	  port: 9090
//	  metrics_path: /metrics
//	log:
//	  level: info            # debug, info, warn, error
//	  format: text           # text, json
package config
