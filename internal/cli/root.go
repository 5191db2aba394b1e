// Package cli is the marks command line: the server plus a few owner
// commands that share its configuration.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marks/internal/app"
)

var rootCmd = &cobra.Command{
	Use:   "marks",
	Short: "Personal bookmark manager with Google sign-in and live updates",
	Long: "marks serves a bookmark dashboard backed by SQLite and Redis.\n" +
		"Configuration comes from MARKS_* environment variables, optionally\n" +
		"from the YAML file named by MARKS_CONFIG_FILE.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (default)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

func serve() error {
	a, err := app.New()
	if err != nil {
		return err
	}
	return a.Run()
}

// Execute runs the command named on the command line.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ marks: %v\n", err)
		os.Exit(1)
	}
}

// run executes args against the command tree, writing to out. Tests use it.
func run(out io.Writer, args ...string) error {
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
