/*
Hardware ray traced mesh viewer. Reads renderer.toml, opens a window and
renders the configured mesh either through the rasterizer or through the
ray tracing pipeline, with shader hot reload while running.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/theHamsta/go-rtx-renderer/engine"
	"github.com/theHamsta/go-rtx-renderer/engine/config"
	"github.com/theHamsta/go-rtx-renderer/engine/core"
)

func main() {
	configPath := flag.String("config", "renderer.toml", "path to the renderer configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal(err.Error())
	}

	e, err := engine.New(cfg)
	if err != nil {
		core.LogFatal(err.Error())
	}

	if err := e.Initialize(); err != nil {
		core.LogFatal(err.Error())
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		<-sigCh
		core.EventFire(core.EVENT_CODE_APPLICATION_QUIT, nil, core.EventContext{})
	}()

	if err := e.Run(); err != nil {
		core.LogError(err.Error())
	}

	if err := e.Shutdown(); err != nil {
		core.LogError(err.Error())
	}
}
