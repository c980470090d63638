/*
Pathgrid is a single page A* playground: a browser draws a grid, toggles walls, picks a start and a
goal, and watches the engine search either all at once or one expansion per click. The engine runs
on one goroutine and every connection talks to it through events, so any number of pages or
programmatic clients (the /events stream, json or msgpack) can drive the same grid.
*/

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pathgrid/astar"
	"pathgrid/config"
	"pathgrid/events"
	"pathgrid/server"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var (
	configPath *string
	dbg        *bool
	host       *string
	port       *string
)

func init() {
	configPath = flag.String("config", "./config.yaml", "path to the yaml config; defaults apply if it does not exist")
	dbg = flag.Bool("debug", false, "debug logging, overrides the configured level")
	host = flag.String("host", "", "The host ip, overrides the configured host")
	port = flag.String("port", "", "The host port, overrides the configured port")
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.FromYaml(*configPath)
	if err != nil {
		return nil, err
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	return cfg, nil
}

func setupLogging(cfg *config.AppConfig) error {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	if *dbg {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func runApp() (err error) {
	var cfg *config.AppConfig
	if cfg, err = loadConfig(); err != nil {
		return
	}
	if err = setupLogging(cfg); err != nil {
		return
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer appCancel()

	bus := events.NewBus()
	defer bus.Close()

	engine := astar.NewEngine(bus)
	if err = engine.NewGraph(cfg.Grid.Columns, cfg.Grid.Rows); err != nil {
		return
	}

	inbound := make(chan events.Event)
	var srv *server.Server
	if srv, err = server.NewServer(cfg, bus, inbound); err != nil {
		return
	}

	group, groupCtx := errgroup.WithContext(appCtx)
	group.Go(func() error {
		return engine.Run(groupCtx, inbound)
	})
	group.Go(func() error {
		return srv.Serve(groupCtx)
	})
	return group.Wait()
}

func main() {
	flag.Parse()
	if err := runApp(); err != nil {
		log.Fatal(err)
	}
}
