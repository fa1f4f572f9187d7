package main

import (
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marmos91/dittofm/internal/tui"
	"github.com/marmos91/dittofm/pkg/client"
)

func browseCmd() *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and edit a file manager server in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = cfg.Client.URL
			}

			fetcher := client.NewFetcher(http.DefaultClient, cfg.Client.RetryPolicy())
			prompter := &client.QueuedPrompter{}
			app := client.NewApp(fetcher, prompter, url)

			model := tui.New(cmd.Context(), app, prompter)
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&url, "url", "u", "", "Content root URL (default: client.url from the config)")
	return cmd
}
