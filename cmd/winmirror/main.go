package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/thejerf/suture/v4"

	"github.com/1broseidon/winmirror/internal/config"
	"github.com/1broseidon/winmirror/internal/logging"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "server":
		os.Exit(runServer(os.Args[2:]))
	case "viewer":
		os.Exit(runViewer(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "windows":
		os.Exit(runWindows(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: winmirror <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  server              Mirror this display's windows (foreground)")
	fmt.Fprintln(w, "  viewer              Show a server's windows on this display")
	fmt.Fprintln(w, "  status              Show server status")
	fmt.Fprintln(w, "  windows             List windows tracked by the server")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config explain      Explain a config value")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  mcp serve           Start MCP server (stdio transport)")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'winmirror <command> --help' for command-specific options.")
}

// commonFlags are accepted by every command that talks to an endpoint.
type commonFlags struct {
	path     *string
	endpoint *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		path:     fs.String("config", "", "Config file path (default: ~/.config/winmirror/config.yaml)"),
		endpoint: fs.String("endpoint", "", "Endpoint name (overrides config)"),
	}
}

// load reads the configuration and applies flag overrides.
func (f commonFlags) load() (*config.Config, error) {
	res, err := loadResult(*f.path)
	if err != nil {
		return nil, err
	}
	cfg := res.Config
	if *f.endpoint != "" {
		cfg.Endpoint = *f.endpoint
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func loadResult(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}

// parseFlags handles the shared help and error exit codes. It returns -1
// when the caller should continue.
func parseFlags(fs *flag.FlagSet, args []string) int {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		fs.Usage()
		return 2
	}
	return -1
}

func initLogging(cfg *config.Config) *slog.Logger {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	logging.Init(level)
	return slog.Default()
}

// essential turns any exit of a service that the process cannot run
// without into a tree shutdown, unless ctx was already cancelled.
func essential(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("stopped unexpectedly")
	}
	return errors.Join(err, suture.ErrTerminateSupervisorTree)
}

// exitCode maps a supervisor result to a process exit code.
func exitCode(err error, logger *slog.Logger) int {
	if err == nil || errors.Is(err, context.Canceled) {
		return 0
	}
	logger.Error("stopped", "error", err)
	return 1
}
