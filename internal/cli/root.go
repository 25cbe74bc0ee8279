package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
	rootDir string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wbctx",
	Short: "wbctx - workbench context for AI prompts",
	Long: `wbctx keeps a ranked summary of what you are working on: the selected file
and an overview of the project files. The summary refreshes shortly after the
workspace settles and renders as a markdown block to prepend to AI prompts.

Configuration is read from .wbctx/config.yml under the project root, with
WBCTX_* environment variables taking precedence.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <root>/.wbctx/config.yml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "project root (default is the current directory)")
}
