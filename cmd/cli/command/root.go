package command

// root.go defines the root command of the homelib admin CLI and its global flags.

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var apiURL string // Global flag for API server URL

var rootCmd = &cobra.Command{
	Use:   "homelib",
	Short: "homelib - Home Library administration CLI",
	Long: `homelib manages a Home Library catalog.

Store commands (migrate, seed, createuser, grant, group) work directly on the
database named by DATABASE_DRIVER / DATABASE_URL. API commands (auth, users,
groups) talk to a running server and keep their tokens in the OS keyring.

Use "homelib command --help" to see all available commands.`,
	SilenceUsage: true,
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "http://localhost:8080", "API server URL")
}
