package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/bulkmail/pkg/apperrors"
	"github.com/telekom/bulkmail/pkg/config"
	"github.com/telekom/bulkmail/pkg/system"
)

const (
	EnvConfig       = "BULKMAIL_CONFIG"
	EnvLogLevel     = "BULKMAIL_LOG_LEVEL"
	EnvSMTPUser     = "BULKMAIL_SMTP_USER"
	EnvSMTPPassword = "BULKMAIL_SMTP_PASSWORD"
)

type Config struct {
	// Context is cancelled on interrupt; commands pass it to the run.
	Context      context.Context
	OutputWriter io.Writer
	// Logger replaces the logger built from --log-level and --log-file.
	Logger *zap.SugaredLogger
}

type runtimeState struct {
	configPath string
	logLevel   string
	logFile    string
	cfg        *config.Config
	log        *zap.SugaredLogger
	ownLogger  bool
	writer     io.Writer
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{
		Context:      context.Background(),
		OutputWriter: os.Stdout,
	}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{writer: cfg.OutputWriter, log: cfg.Logger}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	root := &cobra.Command{
		Use:           "bulkmail",
		Short:         "Send personalised mail to a list of contacts over SMTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = os.Getenv(EnvConfig)
			}
			if rt.logLevel == "" {
				rt.logLevel = os.Getenv(EnvLogLevel)
			}

			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			if rt.configPath != "" {
				loaded, err := config.Load(rt.configPath)
				if err != nil {
					return err
				}
				rt.cfg = loaded
			} else {
				def := config.Default()
				rt.cfg = &def
			}
			if rt.logLevel != "" {
				rt.cfg.Logging.Level = rt.logLevel
			}
			if rt.logFile != "" {
				rt.cfg.Logging.File = rt.logFile
			}

			if rt.log == nil {
				log, err := system.NewLogger(rt.cfg.Logging.Level, rt.cfg.Logging.File)
				if err != nil {
					return err
				}
				rt.log = log
				rt.ownLogger = true
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if rt.ownLogger {
				_ = rt.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.configPath, "config", "", "Path to a YAML config file (env "+EnvConfig+")")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+EnvLogLevel+")")
	root.PersistentFlags().StringVar(&rt.logFile, "log-file", "", "Also append logs to this file")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return apperrors.Wrap(apperrors.KindConfig, err, "invalid arguments")
	})
	root.SetContext(context.WithValue(ctx, runtimeKey{}, rt))

	root.AddCommand(
		NewSendCommand(),
		NewPreviewCommand(),
		NewCompletionCommand(),
		NewVersionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) Logger() *zap.SugaredLogger {
	if rt.log != nil {
		return rt.log
	}
	return zap.NewNop().Sugar()
}

// Config returns a copy of the loaded configuration for a command to
// override with its flags.
func (rt *runtimeState) Config() config.Config {
	if rt.cfg == nil {
		return config.Default()
	}
	return *rt.cfg
}
