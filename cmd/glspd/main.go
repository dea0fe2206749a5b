// Command glspd is the CLI entrypoint (Ambient Component A4): it boots
// the engine as a standalone process over a workspace root, for manual
// and local testing. JSON-RPC framing (the production LSP transport) is
// out of scope for this engine (spec §1); this binary drives the same
// boundary.Engine a framing layer would, printing diagnostics and
// status to stdout instead of speaking the wire protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/groovy-lsp/engine/internal/boundary"
	"github.com/groovy-lsp/engine/internal/classpath"
	"github.com/groovy-lsp/engine/internal/config"
	"github.com/groovy-lsp/engine/internal/logging"
	"github.com/groovy-lsp/engine/internal/types"
)

// consoleNotifier prints engine outputs to stdout, standing in for a
// JSON-RPC framing layer during manual testing.
type consoleNotifier struct{}

func (consoleNotifier) PublishDiagnostics(uri types.URI, diags []boundary.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Printf("diagnostics %s (%d):\n", uri, len(diags))
	for _, d := range diags {
		fmt.Printf("  [%s] %d:%d %s\n", d.Severity, d.Range.Start.Line, d.Range.Start.Character, d.Message)
	}
}

func (consoleNotifier) Status(n boundary.StatusNotification) {
	if n.FilesTotal > 0 {
		fmt.Printf("status: %s quiescent=%v %s (%d/%d)\n", n.Health, n.Quiescent, n.Message, n.FilesIndexed, n.FilesTotal)
		return
	}
	fmt.Printf("status: %s quiescent=%v %s\n", n.Health, n.Quiescent, n.Message)
}

func (consoleNotifier) ShowMessage(kind boundary.MessageType, text string) {
	fmt.Printf("message(%d): %s\n", kind, text)
}

func main() {
	root := flag.String("root", ".", "workspace root to index")
	configPath := flag.String("config", "", "path to an optional glspd.toml config file")
	logLevel := flag.String("log-level", "info", "log level: error|warn|info|debug")
	watch := flag.Bool("watch", true, "keep watching the workspace for file changes after the initial scan")
	flag.Parse()

	logging.SetLevel(logging.ParseLevel(*logLevel))

	absRoot, err := filepath.Abs(*root)
	if err != nil {
		fatalf("failed to resolve root %q: %v", *root, err)
	}

	settings := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fatalf("failed to load config %q: %v", *configPath, err)
		}
		settings = loaded
	}

	eng := boundary.New(classpath.NoopResolver{}, consoleNotifier{})
	eng.DidChangeConfiguration(map[string]any{
		"codeNarcEnabled":     settings.CodeNarcEnabled,
		"logLevel":            settings.LogLevel,
		"gradleBuildStrategy": string(settings.GradleBuildStrategy),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		fmt.Printf("received signal %v, shutting down\n", sig)
		cancel()
	}()

	if err := eng.IndexWorkspace(ctx, []string{absRoot}); err != nil {
		fatalf("initial indexing failed: %v", err)
	}

	if *watch {
		if err := eng.WatchWorkspace(ctx, []string{absRoot}); err != nil {
			fatalf("failed to start workspace watcher: %v", err)
		}
		fmt.Printf("watching %s, press Ctrl+C to stop\n", absRoot)
		<-ctx.Done()
	}

	eng.Shutdown()
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "glspd: "+format+"\n", args...)
	os.Exit(1)
}
