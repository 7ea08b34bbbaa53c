package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/killallgit/podcast-player/internal/downloads"
	"github.com/killallgit/podcast-player/internal/models"
	"github.com/killallgit/podcast-player/internal/notice"
	"github.com/spf13/cobra"
)

// downloadsCmd groups the offline library commands
var downloadsCmd = &cobra.Command{
	Use:   "downloads",
	Short: "Manage downloaded episodes",
	Long: `Manage the offline library of downloaded episodes.

Available subcommands:
  list    - Show downloaded episodes
  add     - Download an episode through the backend proxy
  rm      - Remove a downloaded episode`,
}

var downloadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show downloaded episodes",
	Args:  cobra.NoArgs,
	RunE:  runDownloadsList,
}

var downloadsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Download an episode",
	Long: `Download an episode into the offline library.

The audio is fetched through the backend's proxy endpoint and verified
before it is stored.

Example:
  podcast-player downloads add --id ep-1 --url https://cdn.example.com/ep-1.mp3 --title "Pilot"`,
	Args: cobra.NoArgs,
	RunE: runDownloadsAdd,
}

var downloadsRmCmd = &cobra.Command{
	Use:   "rm <episode-id>",
	Short: "Remove a downloaded episode",
	Args:  cobra.ExactArgs(1),
	RunE:  runDownloadsRm,
}

func init() {
	rootCmd.AddCommand(downloadsCmd)
	downloadsCmd.AddCommand(downloadsListCmd, downloadsAddCmd, downloadsRmCmd)
	addEpisodeFlags(downloadsAddCmd)
}

func runDownloadsList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	lib := openLibrary(commandContext(cmd), cfg, notice.NewWriter(cmd.ErrOrStderr()))
	defer lib.Close()

	renderDownloads(cmd.OutOrStdout(), lib.manager.Snapshot().Downloaded)
	return nil
}

func runDownloadsAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	lib := openLibrary(ctx, cfg, notice.NewWriter(cmd.ErrOrStderr()))
	defer lib.Close()

	ep, err := episodeFromFlags(ctx, nil)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	last := -1
	cancel := lib.manager.Subscribe(func(s downloads.Snapshot) {
		if pct, ok := s.Progress[ep.ID]; ok && pct != last && pct%10 == 0 {
			last = pct
			fmt.Fprintf(out, "%s: %d%%\n", ep.Title, pct)
		}
	})
	defer cancel()

	return lib.manager.Download(ctx, ep)
}

func runDownloadsRm(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	lib := openLibrary(ctx, cfg, notice.NewWriter(cmd.ErrOrStderr()))
	defer lib.Close()

	return lib.manager.Delete(ctx, args[0])
}

// renderDownloads prints the downloaded episodes as a table, newest first
func renderDownloads(out io.Writer, episodes []models.StoredEpisode) {
	if len(episodes) == 0 {
		fmt.Fprintln(out, "No downloaded episodes")
		return
	}

	sorted := make([]models.StoredEpisode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StoredAt.After(sorted[j].StoredAt)
	})

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Title", "Size", "Premium", "Downloaded"})
	for _, ep := range sorted {
		premium := ""
		if ep.IsPremium {
			premium = "yes"
		}
		tw.AppendRow(table.Row{
			ep.ID,
			ep.Title,
			humanize.IBytes(uint64(ep.Size)),
			premium,
			humanize.Time(ep.StoredAt),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	tw.Render()
}
