package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/banshee-data/sonarmap/internal/config"
	"github.com/banshee-data/sonarmap/internal/httputil"
	"github.com/banshee-data/sonarmap/internal/tui"
)

func newWatchCmd() *cobra.Command {
	var (
		url      string
		interval time.Duration
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Draw the live map of a running sonarmap in this terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			client := httputil.NewStandardClient(&http.Client{Timeout: timeout})
			src := tui.NewRemoteSource(client, url)

			prog := tea.NewProgram(tui.New(cmd.Context(), src, interval),
				tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "http://localhost"+config.DefaultListen, "Base URL of the sonarmap HTTP server")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "Redraw period")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Second, "Per-request timeout")
	return cmd
}
