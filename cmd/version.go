package cmd

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// Set at link time with -ldflags "-X github.com/killallgit/podcast-player/cmd.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print the Podcast Player build and the runtime it was built for.

The player drives mpv over its JSON IPC socket and keeps downloads in a
local SQLite library; both are listed with the build details.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		short, _ := cmd.Flags().GetBool("short")
		if short {
			fmt.Fprintf(cmd.OutOrStdout(), "v%s\n", Version)
			return
		}
		renderVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "print just the version number")
}

// buildAge renders BuildTime relative to now when it is an RFC 3339 stamp
func buildAge(stamp string) string {
	built, err := time.Parse(time.RFC3339, stamp)
	if err != nil {
		return stamp
	}
	return fmt.Sprintf("%s (%s)", stamp, humanize.Time(built))
}

func renderVersion(out io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("Podcast Player v" + Version)
	tw.AppendRows([]table.Row{
		{"Commit", GitCommit},
		{"Built", buildAge(BuildTime)},
		{"Go", runtime.Version()},
		{"Platform", runtime.GOOS + "/" + runtime.GOARCH},
	})
	tw.AppendSeparator()
	tw.AppendRows([]table.Row{
		{"Playback", "mpv (JSON IPC)"},
		{"Offline library", "SQLite"},
	})
	tw.Render()
}
