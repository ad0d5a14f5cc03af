package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"swimstatus/pkg/config"
	"swimstatus/pkg/display"
	"swimstatus/pkg/fiberpool"
	"swimstatus/pkg/logging"
	"swimstatus/pkg/pool"
	"swimstatus/pkg/restypool"
	"swimstatus/pkg/status"
)

// cli carries flag values and what PersistentPreRunE builds from them.
type cli struct {
	configPath string
	baseURL    string
	transport  string
	verbose    bool
	logFile    string

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	return (&cli{}).rootCmd()
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "swimstatus",
		Short: "Show and control a swim timer over HTTP",
		Long: `swimstatus talks to a swim timer service. It resets or stops the
timer, signals individual lanes to stop, and shows the a, b and y values
the service reports.

Run without a subcommand to open the terminal display.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&c.configPath, "config", "c", "", "config file (.toml or .yaml)")
	flags.StringVar(&c.baseURL, "base-url", "", "timer service URL (overrides config)")
	flags.StringVar(&c.transport, "transport", "", "HTTP transport: resty or fiber (overrides config)")
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&c.logFile, "log-file", "", "write logs to this file instead of stderr")

	root.AddCommand(
		c.tuiCmd(),
		c.resetCmd(),
		c.stopCmd(),
		c.refreshCmd(),
		c.signalStopCmd(),
		c.watchCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	if c.transport != "" {
		cfg.Transport = c.transport
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c.cfg = cfg

	logFile := c.logFile
	if logFile == "" && isTUI(cmd) {
		// the terminal display owns stderr
		logFile = filepath.Join(os.TempDir(), "swimstatus.log")
	}
	c.logger, err = logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Verbose:    c.verbose,
		OutputPath: logFile,
	})
	return err
}

// syncLogger flushes the logger built by setup, if any. It runs after
// Execute so failed commands are flushed too.
func (c *cli) syncLogger() {
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}

func isTUI(cmd *cobra.Command) bool {
	return cmd.Name() == "tui" || !cmd.HasParent()
}

func newPool(cfg config.Config) (pool.Client, error) {
	switch cfg.Transport {
	case config.TransportResty:
		return restypool.New(cfg), nil
	case config.TransportFiber:
		return fiberpool.New(cfg), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}

// newStatusClient builds a status client backed by board. The returned
// close func releases the HTTP pool.
func (c *cli) newStatusClient(board *display.Board) (*status.Client, func(), error) {
	hc, err := newPool(c.cfg)
	if err != nil {
		return nil, nil, err
	}
	c.logger.Debug("status client ready",
		zap.String("base_url", c.cfg.BaseURL),
		zap.String("transport", c.cfg.Transport),
		zap.Int("pool_size", c.cfg.Size))
	return status.New(hc, board.Slots(), c.logger), hc.Close, nil
}

func (c *cli) requestTimeout() time.Duration {
	return c.cfg.RequestTimeout + c.cfg.DialTimeout
}
