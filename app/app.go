package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/zerohttp/config"
	"github.com/searchktools/zerohttp/core"
)

// App ties configuration to an engine instance and owns process lifecycle.
type App struct {
	cfg    *config.Config
	engine *core.Engine
}

// New creates an application instance.
func New(cfg *config.Config) *App {
	engine := core.NewEngine()
	engine.ServerName = cfg.ServerName
	engine.IdleTimeout = cfg.IdleTimeout
	engine.MaxConns = cfg.MaxConns
	engine.ReusePort = cfg.ReusePort

	if cfg.StaticRoot != "" {
		engine.Static("/static", cfg.StaticRoot)
	}

	return &App{
		cfg:    cfg,
		engine: engine,
	}
}

// Engine returns the underlying engine for route registration.
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Run starts the application and blocks until the engine dies.
func (a *App) Run() {
	go a.awaitSignal()

	addr := fmt.Sprintf(":%d", a.cfg.Port)
	log.Printf("⚡ zerohttp starting on port %d [%s]", a.cfg.Port, a.cfg.Env)

	if err := a.engine.Run(addr); err != nil {
		log.Fatalf("Server startup failed: %v", err)
	}
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	stats := a.engine.Stats()
	log.Printf("Signal received: %v. Served %d requests on %d connections. Shutting down...",
		sig, stats.Requests, stats.AcceptedConns)
	os.Exit(0)
}
