package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"payrecon/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "payrecon",
	Short: "payrecon - attach incoming payments to sales invoices",
	Long: `payrecon reconciles incoming customer payments against outstanding
sales invoices in МойСклад. For every unattached payment it picks the single
invoice the payment settles (by invoice number in the purpose text, or by
exact amount plus issue date), marks the payment as attached and advances the
invoice's paid amount.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("payrecon executed")

		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
