package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragchat/internal/app"
	"github.com/kailas-cloud/ragchat/internal/config"
	"github.com/kailas-cloud/ragchat/internal/domain/record"
	"github.com/kailas-cloud/ragchat/internal/domain/upload"
	"github.com/kailas-cloud/ragchat/internal/domain/usage"
	logpkg "github.com/kailas-cloud/ragchat/internal/logger"
	"github.com/kailas-cloud/ragchat/internal/usecase/chat"
	"github.com/kailas-cloud/ragchat/internal/usecase/ingest"
)

type documentService interface {
	Upload(ctx context.Context, files []ingest.File) ([]upload.Result, error)
	List(ctx context.Context) ([]record.Record, error)
	Get(ctx context.Context, id string) (record.Record, error)
	PurgeOrphans(ctx context.Context) (int, error)
}

type chatService interface {
	Chat(ctx context.Context, message string, topK int) (chat.Response, error)
}

type usageService interface {
	GetReport(ctx context.Context, period usage.Period) usage.Report
}

// Services are built in PersistentPreRunE unless already set.
var (
	documents documentService
	chats     chatService
	usages    usageService
	closeApp  = func() {}
)

var (
	envFlag     string
	configFlag  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:               "ragctl",
	Short:             "Administer a ragchat deployment",
	Long:              `Upload documents, inspect the registry, ask questions and purge orphan vectors without going through the HTTP API.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupServices,
	PersistentPostRun: func(*cobra.Command, []string) { closeApp() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFlag, "env", config.GetEnv(), "Environment whose config/{env}.yaml is loaded")
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Explicit config file (overrides --env)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log at debug level")
}

func setupServices(cmd *cobra.Command, _ []string) error {
	if documents != nil && chats != nil && usages != nil {
		return nil
	}

	var (
		cfg config.Config
		err error
	)
	if configFlag != "" {
		cfg, err = config.LoadFile(configFlag)
	} else {
		cfg, err = config.Load(envFlag)
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level := "warn"
	if verboseFlag {
		level = "debug"
	}
	logEnv := envFlag
	if logEnv != "prod" {
		logEnv = "local"
	}
	logger, err := logpkg.NewLogger(logEnv, level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	a, err := app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	documents, chats, usages = a.Ingest, a.Chat, a.Usage
	closeApp = func() {
		a.Close()
		_ = logger.Sync()
	}
	logger.Debug("Services ready", zap.String("driver", cfg.Database.Driver))
	return nil
}

// printf writes to the command's configured output.
func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
