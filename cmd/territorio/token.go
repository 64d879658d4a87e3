package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/territorio/internal/models"
	"github.com/zulandar/territorio/internal/server"
)

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		number     int
		userID     string
		role       string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin API token for a congregation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := openDB(configPath)
			if err != nil {
				return err
			}
			defer closeDB(gormDB)

			var c models.Congregation
			if err := gormDB.Where("number = ?", number).First(&c).Error; err != nil {
				return fmt.Errorf("congregation %d: %w", number, err)
			}
			if ttl <= 0 {
				ttl = time.Duration(cfg.Auth.TokenTTLH) * time.Hour
			}
			tok, err := server.IssueToken([]byte(cfg.Auth.JWTSecret), server.Claims{
				UserID:         userID,
				OrganizationID: c.ID,
				Role:           role,
			}, time.Now(), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to territorio config file")
	cmd.Flags().IntVar(&number, "number", 0, "congregation number (required)")
	cmd.Flags().StringVar(&userID, "user", "cli", "user ID stored in the token")
	cmd.Flags().StringVar(&role, "role", "admin", "role stored in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default: auth.token_ttl_hours)")
	cmd.MarkFlagRequired("number")
	return cmd
}
