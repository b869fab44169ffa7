package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sweeney/screen-powersave/internal/config"
)

func newStatusCmd(configPath *string) *cobra.Command {
	var url string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of the running daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				m, err := loadConfig(cmd, *configPath)
				if err != nil {
					return err
				}
				if m.Daemon().HTTPAddr == "" {
					return fmt.Errorf("HTTP server is disabled, pass --url")
				}
				url = statusURL(m.Daemon().HTTPAddr)
			}
			return fetchStatus(cmd.OutOrStdout(), url)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "status URL (default derived from the http setting)")
	config.AddFlags(cmd)
	return cmd
}

// statusURL turns a listen address into the URL of the JSON status.
func statusURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/index.json"
}

func fetchStatus(w io.Writer, url string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get status: %s", resp.Status)
	}
	_, err = fmt.Fprintln(w, strings.TrimSpace(string(body)))
	return err
}

func newPrintConfigCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print-config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			data, err := m.File().Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	config.AddFlags(cmd)
	return cmd
}
