package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"wordsmith/internal/auth"
)

func newAPIKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Issue and revoke customer API keys",
	}
	cmd.AddCommand(newAPIKeyCreateCmd(a), newAPIKeyRevokeCmd(a))
	return cmd
}

type createdKey struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Prefix    string     `json:"key_prefix"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Key       string     `json:"key"`
}

func newAPIKeyCreateCmd(a *app) *cobra.Command {
	var (
		userID string
		name   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue a key; the plaintext is printed once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, closePool, err := a.openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			defer closePool()

			key, plaintext, err := auth.NewKeyIssuer(keys, nil).Issue(cmd.Context(), userID, name, ttl)
			if err != nil {
				return err
			}

			out := createdKey{
				ID:        key.ID,
				UserID:    key.UserID,
				Name:      key.Name,
				Prefix:    key.KeyPrefix,
				ExpiresAt: key.ExpiresAt,
				Key:       plaintext,
			}
			if a.jsonOutput() {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "id:  %s\nkey: %s\n", out.ID, out.Key)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User the key bills to")
	cmd.Flags().StringVar(&name, "name", "", "Label shown to the user")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Expiry from now, e.g. 720h (default: never)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAPIKeyRevokeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys, closePool, err := a.openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			defer closePool()

			if err := auth.NewKeyIssuer(keys, nil).Revoke(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
			return err
		},
	}
}
