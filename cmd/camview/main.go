package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/germanamz/camview/pkg/camdir"
	"github.com/germanamz/camview/pkg/engine"
	"github.com/germanamz/camview/pkg/feed"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// commonFlags are accepted by the TUI and every subcommand that runs the
// engine.
type commonFlags struct {
	config string
	dir    string
	env    string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "path to configuration file (default: .camview/config.yaml or camview.yaml)")
	fs.StringVar(&c.dir, "camview-dir", camdir.DefaultName, "path to .camview directory")
	fs.StringVar(&c.env, "env", ".env", "path to .env file (ignored if missing)")
}

func main() {
	// Handle subcommands before flag parsing.
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			initCmd := flag.NewFlagSet("init", flag.ExitOnError)
			initCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: camview init [flags]\n\nCreate or update .camview/config.yaml interactively.\n\nFlags:\n")
				initCmd.PrintDefaults()
			}
			dir := initCmd.String("camview-dir", camdir.DefaultName, "path to .camview directory")
			_ = initCmd.Parse(os.Args[2:])

			exitOnErr(runInit(*dir))
			return

		case "list":
			listCmd := flag.NewFlagSet("list", flag.ExitOnError)
			listCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: camview list [flags]\n\nEnumerate cameras once and print them with their saved settings.\n\nFlags:\n")
				listCmd.PrintDefaults()
			}
			var common commonFlags
			common.register(listCmd)
			_ = listCmd.Parse(os.Args[2:])

			exitOnErr(loadDotEnv(common.env))
			exitOnErr(runList(common))
			return

		case "serve":
			serveCmd := flag.NewFlagSet("serve", flag.ExitOnError)
			serveCmd.Usage = func() {
				fmt.Fprintf(os.Stderr, "Usage: camview serve [flags]\n\nRun headless: render feed over HTTP and remote control over MCP (stdio).\n\nFlags:\n")
				serveCmd.PrintDefaults()
			}
			var common commonFlags
			common.register(serveCmd)
			addr := serveCmd.String("addr", "", "render feed listen address (overrides feed.addr)")
			forceMCP := serveCmd.Bool("mcp", false, "serve MCP remote control on stdio (overrides control.enabled)")
			_ = serveCmd.Parse(os.Args[2:])

			exitOnErr(loadDotEnv(common.env))
			exitOnErr(runServe(common, *addr, *forceMCP))
			return

		case "version":
			fmt.Println(version)
			return
		}
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: camview [flags]\n       camview <command> [flags]\n\nFlags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nCommands:\n  init     Create or update the .camview config interactively\n  list     Print detected cameras and saved settings\n  serve    Run headless with the render feed and MCP remote control\n  version  Print the version\n")
	}

	var common commonFlags
	common.register(flag.CommandLine)
	flag.Parse()

	exitOnErr(loadDotEnv(common.env))
	exitOnErr(run(common))
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// startEngine loads configuration, opens the log file and builds the engine.
// The returned cleanup closes the engine and the log file.
func startEngine(ctx context.Context, common commonFlags) (*engine.Engine, func(), error) {
	d := camdir.New(common.dir)

	cfg, err := loadConfig(common.config, d)
	if err != nil {
		return nil, nil, err
	}

	if d.Exists() {
		if err := camdir.EnsureStructure(d); err != nil {
			return nil, nil, err
		}
	}

	logger, logFile, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	eng, err := engine.New(ctx, cfg, engine.Options{Logger: logger})
	if err != nil {
		_ = logFile.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Error("closing engine", "error", err)
		}
		_ = logFile.Close()
	}
	return eng, cleanup, nil
}

// runBackground starts the engine loop and, when addr is set, the render
// feed. The returned wait function blocks until both have stopped and
// reports the first error.
func runBackground(ctx context.Context, eng *engine.Engine, addr string) func() error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	record := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	wg.Go(func() { record(eng.Run(ctx)) })

	if addr != "" {
		srv := feed.New(eng.Session(), eng.Logger())
		wg.Go(func() { followFeed(ctx, eng.Events(), srv.Notify) })
		wg.Go(func() { record(srv.ListenAndServe(ctx, addr)) })
	}

	return func() error {
		wg.Wait()
		return firstErr
	}
}

func run(common commonFlags) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	eng, cleanup, err := startEngine(ctx, common)
	if err != nil {
		return err
	}
	defer cleanup()

	wait := runBackground(ctx, eng, eng.Config().Feed.Addr)

	model := newAppModel(ctx, eng.Session(), eng.Events())

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	// Send the program reference so the model can start bridge goroutines.
	go func() {
		p.Send(programReadyMsg{program: p})
	}()

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}

	cancel()
	return errors.Join(err, wait())
}
