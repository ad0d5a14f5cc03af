package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"swimstatus/pkg/display"
	"swimstatus/pkg/status"
	"swimstatus/pkg/statusserver"
	"swimstatus/pkg/tui"
)

func (c *cli) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal display (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd)
		},
	}
}

func (c *cli) runTUI(cmd *cobra.Command) error {
	ctx := cmd.Context()
	client, closePool, err := c.newStatusClient(display.NewBoard())
	if err != nil {
		return err
	}
	defer closePool()

	err = tui.Run(tui.Options{
		Context:    ctx,
		Controller: client,
		PollEvery:  c.cfg.PollInterval,
		Target:     c.cfg.BaseURL,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

type fetchFunc func(*status.Client, context.Context) (status.Reading, error)

func (c *cli) fetchCmd(use, short string, fetch fetchFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			board := display.NewBoard()
			client, closePool, err := c.newStatusClient(board)
			if err != nil {
				return err
			}
			defer closePool()

			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			if _, err := fetch(client, ctx); err != nil {
				return err
			}
			printState(cmd.OutOrStdout(), board.State())
			return nil
		},
	}
}

func (c *cli) resetCmd() *cobra.Command {
	return c.fetchCmd("reset", "Reset the timer (GET /r) and print a, b, y", (*status.Client).Reset)
}

func (c *cli) stopCmd() *cobra.Command {
	return c.fetchCmd("stop", "Stop the timer (GET /stop) and print a, b, y", (*status.Client).Stop)
}

func (c *cli) refreshCmd() *cobra.Command {
	return c.fetchCmd("refresh", "Print the current a, b, y (GET /data)", (*status.Client).Refresh)
}

func (c *cli) watchCmd() *cobra.Command {
	var every time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll /data and print a, b, y whenever they change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if every <= 0 {
				every = c.cfg.PollInterval
			}
			if every <= 0 {
				every = status.DefaultPollInterval
			}
			client, closePool, err := c.newStatusClient(display.NewBoard())
			if err != nil {
				return err
			}
			defer closePool()

			ctx := cmd.Context()
			done := status.StartPoller(ctx, client, every)
			watchDisplay(ctx, cmd.OutOrStdout(), client, every)
			<-done
			return nil
		},
	}
	cmd.Flags().DurationVar(&every, "every", 0, "poll interval (overrides poll_interval)")
	return cmd
}

// watchDisplay prints the display each time it differs from the last print,
// until ctx is cancelled.
func watchDisplay(ctx context.Context, w io.Writer, client *status.Client, every time.Duration) {
	tick := every / 2
	if tick <= 0 {
		tick = every
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var last display.State
	for {
		if st := client.Display(); st != last {
			printState(w, st)
			last = st
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *cli) signalStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signal-stop <id>",
		Short: "Signal one lane to stop (POST /signal_stop)",
		Long: `Posts {"id": <id>} to /signal_stop. A numeric id is sent as a JSON
number, anything else as a JSON string.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, closePool, err := c.newStatusClient(display.NewBoard())
			if err != nil {
				return err
			}
			defer closePool()

			ctx, cancel := context.WithTimeout(cmd.Context(), c.requestTimeout())
			defer cancel()

			return client.SignalStop(ctx, parseID(args[0]))
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var (
		addr  string
		lanes int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run an in-memory stand-in for the timer service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.ServeAddr
			}
			srv := statusserver.New(c.logger, statusserver.WithLanes(lanes))
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides serve_addr)")
	cmd.Flags().IntVar(&lanes, "lanes", statusserver.DefaultLanes, "lanes stopped by /stop")
	return cmd
}

func parseID(arg string) any {
	if n, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return arg
}

func printState(w io.Writer, st display.State) {
	fmt.Fprintf(w, "%s=%s %s=%s %s=%s\n",
		display.SlotA, st.A,
		display.SlotB, st.B,
		display.SlotY, st.Y)
}
