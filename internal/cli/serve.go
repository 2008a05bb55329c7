package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/ppetrov/opinia/internal/model"
	"github.com/ppetrov/opinia/internal/pipeline"
	"github.com/ppetrov/opinia/internal/server"
	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [source]",
	Short: "Serve one feedback source over an HTTP API",
	Long: `Serve starts an HTTP server exposing one feedback source as JSON:

  GET  /api/records   records with default labels, before annotation
  POST /api/annotate  trigger the annotation run (at most one model call)
  GET  /api/view      filtered view; facet values go in query parameters
  GET  /health        liveness check

The annotation run happens at most once per server session; repeated
requests return the stored result.

Example:
  opinia serve feedback.json --addr :8080
  opinia serve sqlite:feedback.db --llm
  curl 'localhost:8080/api/view?sentiment=Negative,Positive&source=app-store'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")

	// Store flags
	serveCmd.Flags().StringVar(&tableName, "table", "feedback", "table name for sqlite sources")
	serveCmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the annotation cache")

	// LLM flags
	serveCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable model annotation")
	serveCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	serveCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Build configuration from flags
	cfg := model.DefaultConfig()
	cfg.Store.Table = tableName
	cfg.Cache.Enabled = !noCache
	cfg.Serve.Addr = serveAddr
	cfg.Output.Verbose = verbose

	if err := resolveSource(args, &cfg); err != nil {
		return err
	}

	// Configure LLM if enabled
	if err := configureLLM(&cfg); err != nil {
		return err
	}

	// Create pipeline
	p, err := pipeline.NewPipeline(&cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	srv := server.NewServer(p, cfg.Serve.Addr)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
