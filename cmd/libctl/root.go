package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"library-backend/pkg/logger"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "libctl",
	Short: "Maintenance commands for the library circulation backend",
	Long: `libctl runs out-of-band jobs against the circulation ledger: schema
migrations, the reservation expiry sweep, the legacy expiry backfill and a
read-only consistency audit. Configuration comes from the same environment
variables as the API server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := godotenv.Load(envFile); err != nil {
				return err
			}
		} else {
			_ = godotenv.Load()
		}
		logger.Init(getEnv("APP_ENV", "development"), getEnv("LOG_LEVEL", "info"))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment from this file instead of ./.env")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(expireCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(auditCmd)

	backfillCmd.Flags().Bool("dry-run", false, "Only count reservations without an expiry date")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
