package config

import (
	"flag"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        int           `config:"port"`
	ServerName  string        `config:"server.name"`
	IdleTimeout time.Duration `config:"idle.timeout"`
	MaxConns    int           `config:"max.conns"`
	ReusePort   bool          `config:"reuse.port"`
	StaticRoot  string        `config:"static.root"`
	Env         string        `config:"env"`
}

// New loads configuration from flags, then lets ZEROHTTP_* environment
// variables override them.
func New() *Config {
	cfg := &Config{}

	flag.IntVar(&cfg.Port, "port", 8080, "HTTP server port")
	flag.StringVar(&cfg.ServerName, "server-name", "zerohttp", "Server header token")
	flag.DurationVar(&cfg.IdleTimeout, "idle-timeout", 60*time.Second, "keep-alive idle timeout")
	flag.IntVar(&cfg.MaxConns, "max-conns", 100000, "maximum concurrent connections")
	flag.BoolVar(&cfg.ReusePort, "reuse-port", false, "enable SO_REUSEPORT on the listener")
	flag.StringVar(&cfg.StaticRoot, "static-root", "", "directory to serve under /static (empty disables)")
	flag.StringVar(&cfg.Env, "env", "development", "environment (development/production)")

	flag.Parse()

	m := NewManager()
	m.LoadFromEnv("ZEROHTTP")
	m.Unmarshal("", cfg)

	return cfg
}
