// Command nodegraph runs the graph execution server: a single `run`
// subcommand, grounded on ternarybob-iter's cmd/iter-service/main.go
// hand-rolled flag.NewFlagSet dispatch rather than a cobra/urfave
// dependency (neither appears in a full example repo, only in
// manifest-only stubs).
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nodegraph/nodegraph-server/internal/config"
	"github.com/nodegraph/nodegraph-server/internal/httpapi"
	"github.com/nodegraph/nodegraph-server/internal/nodepack"
	"github.com/nodegraph/nodegraph-server/internal/observability"
	"github.com/nodegraph/nodegraph-server/internal/observability/slogobserver"
	"github.com/nodegraph/nodegraph-server/internal/ops"

	_ "github.com/nodegraph/nodegraph-server/examplepack"
)

func main() {
	args := os.Args[1:]
	command := "run"
	if len(args) > 0 && args[0][0] != '-' {
		command = args[0]
		args = args[1:]
	}

	var err error
	switch command {
	case "run":
		err = cmdRun(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`nodegraph - graph execution server

Usage:
  nodegraph run [flags] <nodepack-root>

Flags:
  --host string   listen host (default "0.0.0.0")
  --port int      listen port (default 8080)
  --reload        watch the nodepack root and log a rebuild notice on change

Examples:
  nodegraph run ./examplepack
  nodegraph run --host 0.0.0.0 --port 9090 --reload ./examplepack`)
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	host := fs.String("host", "0.0.0.0", "listen host")
	port := fs.Int("port", 8080, "listen port")
	reload := fs.Bool("reload", false, "watch the nodepack root and log a rebuild notice on change")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root := "."
	if rest := fs.Args(); len(rest) > 0 {
		root = rest[0]
	}

	if err := config.LoadEnvFile(".env"); err != nil {
		return err
	}

	cfg := config.Config{Host: *host, Port: *port, Reload: *reload, NodepackRoot: root}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogobserver.LevelFromEnv()}))
	observer := slogobserver.New(logger)
	ctx := context.Background()

	// examplepack registers its operations from its own init(); Build()
	// freezes everything registered by the time main runs.
	registry, buildErrs := ops.Build()
	for _, e := range buildErrs {
		observer.Error(ctx, "schema error during registry build", observability.Error(e))
	}
	observer.Info(ctx, "registry built", observability.Int("operations", len(registry.Schemas())))

	server := httpapi.New(registry, observer)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: server.Handler()}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Reload {
		watcher, err := nodepack.NewWatcher(cfg.NodepackRoot, 200*time.Millisecond, logger)
		if err != nil {
			logger.Warn("could not start --reload watcher", "error", err)
		} else {
			go watcher.Run(runCtx)
		}
	}

	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	observer.Info(ctx, "listening", observability.String("addr", addr), observability.String("nodepack_root", cfg.NodepackRoot))
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
