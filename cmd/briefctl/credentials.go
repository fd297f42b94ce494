package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	credsCmd := &cobra.Command{Use: "credentials", Short: "Credential operations"}

	var token, refresh string
	connectCmd := &cobra.Command{
		Use:   "connect PROVIDER",
		Short: "Store an access token for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			if token == "" {
				return fmt.Errorf("--token required")
			}
			payload := map[string]any{"access_token": token}
			if refresh != "" {
				payload["refresh_token"] = refresh
			}
			resp, err := newClient().R().
				SetBody(payload).
				Put(fmt.Sprintf("/api/users/%s/credentials/%s", userFlag, args[0]))
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			return printJSON(resp.Body())
		},
	}
	connectCmd.Flags().StringVarP(&token, "token", "t", "", "Access token (required)")
	connectCmd.Flags().StringVarP(&refresh, "refresh-token", "r", "", "Refresh token")
	_ = connectCmd.MarkFlagRequired("token")
	credsCmd.AddCommand(connectCmd)

	disconnectCmd := &cobra.Command{
		Use:   "disconnect PROVIDER",
		Short: "Remove a provider's stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if userFlag == "" {
				return fmt.Errorf("--user required")
			}
			resp, err := newClient().R().
				Delete(fmt.Sprintf("/api/users/%s/credentials/%s", userFlag, args[0]))
			if err != nil {
				return err
			}
			if resp.IsError() {
				return fmt.Errorf("http %d: %s", resp.StatusCode(), resp.String())
			}
			fmt.Println("disconnected")
			return nil
		},
	}
	credsCmd.AddCommand(disconnectCmd)

	rootCmd.AddCommand(credsCmd)
}
