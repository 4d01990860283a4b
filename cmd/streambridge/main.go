// Command streambridge serves LangGraph agent runs as AI SDK data streams.
//
// The serve command connects to a LangGraph deployment (or, for local
// development, directly to an OpenAI or Anthropic model) and exposes the
// turns over HTTP:
//
//	streambridge serve --config config.yaml
//	streambridge serve --source openai --model gpt-4o-mini
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/hupe1980/streambridge"
	"github.com/hupe1980/streambridge/config"
	"github.com/hupe1980/streambridge/core"
	"github.com/hupe1980/streambridge/langgraph"
	"github.com/hupe1980/streambridge/logging"
	"github.com/hupe1980/streambridge/server"
	"github.com/hupe1980/streambridge/session"
	"github.com/hupe1980/streambridge/source/anthropic"
	"github.com/hupe1980/streambridge/source/openai"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "streambridge",
		Short:         "Bridge LangGraph event streams to the AI SDK data-stream protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type serveFlags struct {
	configPath string
	addr       string
	source     string
	model      string
	node       string
}

func newServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP bridge server",
		Example: `  streambridge serve
  streambridge serve --config config.yaml
  streambridge serve --addr :9090 --source anthropic`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to the YAML configuration file")
	cmd.Flags().StringVar(&flags.addr, "addr", "", "Listen address (overrides the config file)")
	cmd.Flags().StringVar(&flags.source, "source", "", "Upstream source: langgraph, openai or anthropic (overrides the config file)")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model for the openai and anthropic sources (overrides the config file)")
	cmd.Flags().StringVar(&flags.node, "node", "", "Producer tag for the openai and anthropic sources (overrides the config file)")

	return cmd
}

func runServe(flags *serveFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.source != "" {
		cfg.Source = flags.source
	}
	if flags.model != "" {
		cfg.Provider.Model = flags.model
	}
	if flags.node != "" {
		cfg.Provider.Node = flags.node
	}

	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, err := buildSource(cfg, logger)
	if err != nil {
		return err
	}

	bridge := streambridge.New(source, func(o *streambridge.Options) {
		o.IncludeNodes = cfg.Bridge.IncludeNodes
		o.MaxConcurrentStreams = cfg.Bridge.MaxConcurrentStreams
		o.Logger = logger
	})

	// Hot-reload the inclusion set when a config file is in play; everything
	// else requires a restart.
	if flags.configPath != "" {
		stopWatch, err := config.Watch(flags.configPath, logger, func(next *config.Config) {
			bridge.SetIncludeNodes(next.Bridge.IncludeNodes)
		})
		if err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		defer stopWatch()
	}

	srv := server.New(bridge, func(o *server.Options) {
		o.Addr = cfg.Server.Addr
		o.JWTSecret = cfg.Server.JWTSecret
		o.Logger = logger
	})

	logger.Info("Starting streambridge", "addr", cfg.Server.Addr, "source", cfg.Source, "version", version)
	return srv.ListenAndServe(ctx)
}

func buildSource(cfg *config.Config, logger logging.Logger) (core.Source, error) {
	switch cfg.Source {
	case "langgraph":
		client := langgraph.New(func(o *langgraph.Options) {
			o.APIURL = cfg.LangGraph.APIURL
			o.APIKey = cfg.LangGraph.APIKey
			o.MaxRetries = cfg.LangGraph.MaxRetries
			o.Logger = logger
		})
		return langgraph.NewSource(client, session.NewInMemoryStore(), func(o *langgraph.SourceOptions) {
			o.GraphID = cfg.LangGraph.GraphID
			o.AssistantID = cfg.LangGraph.AssistantID
			o.Logger = logger
		}), nil

	case "openai":
		return openai.New(func(o *openai.Options) {
			if cfg.Provider.Model != "" {
				o.Model = cfg.Provider.Model
			}
			if cfg.Provider.Node != "" {
				o.Node = cfg.Provider.Node
			}
		}), nil

	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			if cfg.Provider.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Provider.Model)
			}
			if cfg.Provider.Node != "" {
				o.Node = cfg.Provider.Node
			}
		}), nil

	default:
		return nil, fmt.Errorf("unknown source %q: expected langgraph, openai or anthropic", cfg.Source)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the streambridge version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("streambridge", version)
		},
	}
}
