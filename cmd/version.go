package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/sitekit/internal/version"
)

var (
	versionFormat   string
	versionShort    bool
	versionDetailed bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display version information for sitekit including the version number,
git commit, build time, Go version and target platform.

Examples:
  sitekit version               # Show version
  sitekit version --short       # Show short version
  sitekit version --detailed    # Show detailed version info
  sitekit version --format json # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	addFormatFlag(versionCmd, &versionFormat)
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
	versionCmd.Flags().BoolVar(&versionDetailed, "detailed", false, "Show detailed version information")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	info := version.GetBuildInfo()
	out := cmd.OutOrStdout()

	switch {
	case versionFormat == "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	case versionShort:
		fmt.Fprintln(out, info.Short())
	case versionDetailed:
		fmt.Fprintln(out, info.Detailed())
	default:
		fmt.Fprintf(out, "sitekit %s\n", info.Short())
	}
	return nil
}
