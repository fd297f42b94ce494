package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"
)

func newClient() *resty.Client {
	return resty.New().
		SetBaseURL(apiFlag).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second)
}

func printJSON(data []byte) error {
	var buf map[string]any
	if err := json.Unmarshal(data, &buf); err != nil {
		_, _ = fmt.Fprintln(os.Stdout, string(data))
		return nil
	}
	pretty, err := json.MarshalIndent(buf, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(os.Stdout, string(pretty))
	return nil
}

func init() {
	queryCmd := &cobra.Command{
		Use:   "query QUERY_TEXT...",
		Short: "Run a free-form query through the briefing pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				SetBody(map[string]string{
					"query":        strings.Join(args, " "),
					"workspace_id": userFlag,
				}).
				Post("/api/query")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			return printJSON(resp.Body())
		},
	}
	rootCmd.AddCommand(queryCmd)

	briefingCmd := &cobra.Command{
		Use:   "briefing",
		Short: "Generate the daily briefing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				SetQueryParam("workspace_id", userFlag).
				Get("/api/briefing")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			return printJSON(resp.Body())
		},
	}
	rootCmd.AddCommand(briefingCmd)

	var historyLimit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent queries and their outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				SetQueryParam("workspace_id", userFlag).
				SetQueryParam("limit", strconv.Itoa(historyLimit)).
				Get("/api/query/history")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			return printJSON(resp.Body())
		},
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to return")
	rootCmd.AddCommand(historyCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show per-provider connection status",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				SetQueryParam("user_id", userFlag).
				Get("/api/auth/status")
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			return printJSON(resp.Body())
		},
	}
	rootCmd.AddCommand(statusCmd)
}
