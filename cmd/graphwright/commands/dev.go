// Copyright 2026 The Graphwright Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/graphwright/graphwright/cmd/graphwright/cli"
	"github.com/graphwright/graphwright/lib/binstall"
	"github.com/graphwright/graphwright/lib/compose"
	"github.com/graphwright/graphwright/lib/fault"
	"github.com/graphwright/graphwright/lib/federation"
	"github.com/graphwright/graphwright/lib/orchestrator"
	"github.com/graphwright/graphwright/lib/router"
	"github.com/graphwright/graphwright/lib/session"
	"github.com/graphwright/graphwright/lib/watch"
)

type devParams struct {
	SupergraphConfig  string
	RouterConfig      string
	Listen            string
	FederationVersion string
	Session           string
	RuntimeDir        string
	WorkDir           string
	CompositionBinary string
	RouterBinary      string
	RouterVersion     string
	CacheDir          string
	DownloadURL       string
	PollInterval      time.Duration
	RetryBudget       int
	LogLevel          string
}

func (p *devParams) flagSet() *pflag.FlagSet {
	flagSet := pflag.NewFlagSet("dev", pflag.ContinueOnError)
	flagSet.StringVarP(&p.SupergraphConfig, "supergraph-config", "c", "", "supergraph config file (YAML or JSONC)")
	flagSet.StringVar(&p.RouterConfig, "router-config", "", "router config file; graphwright writes its own copy and never edits this one")
	flagSet.StringVar(&p.Listen, "listen", "", "router listen address (default from the router config, else 127.0.0.1:4000)")
	flagSet.StringVar(&p.FederationVersion, "federation-version", "", "federation version, overriding the supergraph config (1, 2 or =2.x.y)")
	flagSet.StringVar(&p.Session, "session", "", "session name shared by cooperating processes (default derived from the listen address)")
	flagSet.StringVar(&p.RuntimeDir, "runtime-dir", session.DefaultRuntimeDir(), "directory for the session socket")
	flagSet.StringVar(&p.WorkDir, "work-dir", "", "directory for the supergraph and router config (default a temporary directory)")
	flagSet.StringVar(&p.CompositionBinary, "composition-binary", "", "composition binary to use instead of downloading one")
	flagSet.StringVar(&p.RouterBinary, "router-binary", "", "router binary to use instead of downloading one")
	flagSet.StringVar(&p.RouterVersion, "router-version", router.DefaultVersion, "router release to download")
	flagSet.StringVar(&p.CacheDir, "cache-dir", "", "download cache for tool binaries (default the user cache directory)")
	flagSet.StringVar(&p.DownloadURL, "download-url", binstall.DefaultURLTemplate, "tool download URL template ({tool}, {version}, {os}, {arch})")
	flagSet.DurationVar(&p.PollInterval, "poll-interval", watch.DefaultPollInterval, "how often introspected subgraphs are polled")
	flagSet.IntVar(&p.RetryBudget, "retry-budget", orchestrator.DefaultRetryBudget, "consecutive introspection failures tolerated per subgraph (0 retries forever)")
	flagSet.StringVar(&p.LogLevel, "log-level", "info", "log level: debug, info, warn or error")
	return flagSet
}

func (p *devParams) federationVersion() (federation.Version, error) {
	if p.FederationVersion == "" {
		return federation.Version{}, nil
	}
	parsed, err := federation.Parse(p.FederationVersion)
	if err != nil {
		return federation.Version{}, fault.New(fault.Config, "--federation-version: %w", err)
	}
	return parsed, nil
}

func (p *devParams) socketPath(listen string) (string, error) {
	sessionID := p.Session
	if sessionID == "" {
		sessionID = session.SessionIDFromListen(listen)
	}
	path, err := session.SocketPath(p.RuntimeDir, sessionID)
	if err != nil {
		return "", fault.New(fault.Config, "%w", err)
	}
	return path, nil
}

// DevCommand returns the "dev" command.
func DevCommand() *cli.Command {
	var params devParams
	return &cli.Command{
		Name:    "dev",
		Summary: "Run a local supergraph that recomposes as subgraphs change",
		Description: `Compose a supergraph from the subgraphs in a supergraph config, serve it
through a local router, and recompose whenever a subgraph schema changes.

The first "dev" process for a router address leads the session and runs
the router. Later processes with the same address (or --session) join
it: their subgraphs are added to the leader's supergraph and withdrawn
when they exit.`,
		Examples: []cli.Example{
			{
				Description: "Start a session from a supergraph config",
				Command:     "graphwright dev -c supergraph.yaml",
			},
			{
				Description: "Join that session with another team's subgraphs",
				Command:     "graphwright dev -c ../reviews/supergraph.yaml",
			},
		},
		Flags: params.flagSet,
		Logger: func() *slog.Logger {
			level, err := cli.ParseLevel(params.LogLevel)
			if err != nil {
				level = slog.LevelInfo
			}
			return cli.NewCommandLogger(os.Stderr, level)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			if _, err := cli.ParseLevel(params.LogLevel); err != nil {
				return err
			}
			reporter := newTerminalReporter(os.Stdout, colorProfile(os.Stdout))
			if err := runDev(ctx, &params, logger.With("command", "dev"), reporter); err != nil {
				reporter.Fatal(err)
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func runDev(ctx context.Context, params *devParams, logger *slog.Logger, reporter *terminalReporter) error {
	federationVersion, err := params.federationVersion()
	if err != nil {
		return err
	}

	workDir := params.WorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "graphwright-dev-*")
		if err != nil {
			return fmt.Errorf("creating work directory: %w", err)
		}
		defer os.RemoveAll(workDir)
	} else if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("creating work directory: %w", err)
	}

	installer, err := binstall.New(binstall.Options{
		CacheDir: params.CacheDir,
		Fetcher:  &binstall.HTTPFetcher{URLTemplate: params.DownloadURL},
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	composer := compose.New(compose.Options{
		BinaryPath: params.CompositionBinary,
		Installer:  installer,
		WorkDir:    workDir,
		Logger:     logger,
	})

	manager, err := router.New(router.Options{
		BinaryPath: params.RouterBinary,
		Version:    params.RouterVersion,
		Installer:  installer,
		ConfigPath: params.RouterConfig,
		ListenAddr: params.Listen,
		WorkDir:    workDir,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	socketPath, err := params.socketPath(manager.ListenAddr())
	if err != nil {
		return err
	}

	options := orchestrator.DefaultOptions()
	options.ConfigPath = params.SupergraphConfig
	options.FederationVersion = federationVersion
	options.WorkDir = workDir
	options.SocketPath = socketPath
	options.PollInterval = params.PollInterval
	options.RetryBudget = params.RetryBudget
	options.Composer = composer
	options.Router = manager
	options.Reporter = reporter
	options.Logger = logger

	dev, err := orchestrator.New(options)
	if err != nil {
		return err
	}
	return dev.Run(ctx)
}
