package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/killallgit/podcast-player/internal/entitlement"
	"github.com/killallgit/podcast-player/internal/media"
	"github.com/killallgit/podcast-player/internal/notice"
	"github.com/killallgit/podcast-player/internal/objecturl"
	"github.com/killallgit/podcast-player/internal/player"
	"github.com/killallgit/podcast-player/internal/session"
	"github.com/killallgit/podcast-player/internal/telemetry"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// playCmd plays a single episode and reads playback commands from stdin
var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play an episode",
	Long: `Play an episode through mpv.

Downloaded episodes play from the offline library, everything else is
streamed. Premium episodes need a signed-in listener with an active
subscription (auth.access_token).

Commands read from stdin:
  toggle        play or pause
  pause         pause
  seek <sec>    jump to a position
  vol <0-100>   set the volume
  state         print the playback state
  download      save the current episode for offline use
  quit          stop playback

Example:
  podcast-player play --id ep-1 --url https://cdn.example.com/ep-1.mp3
  podcast-player play --id ep-1`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)
	addEpisodeFlags(playCmd)
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	out := cmd.OutOrStdout()
	notifier := notice.NewWriter(cmd.ErrOrStderr())

	sessions, err := session.NewStatic(cfg.Auth.AccessToken)
	if err != nil {
		return fmt.Errorf("invalid access token: %w", err)
	}
	current, err := sessions.Session(ctx)
	if err != nil {
		return err
	}

	lib := openLibrary(ctx, cfg, notifier)
	defer lib.Close()

	ep, err := episodeFromFlags(ctx, lib.manager)
	if err != nil {
		return err
	}

	objects, err := objecturl.Listen(cfg.Player.ObjectURLAddr)
	if err != nil {
		return err
	}

	mpv := media.NewMPV(cfg.Player.MPVPath)
	if err := mpv.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mpv: %w", err)
	}

	gate := entitlement.NewGate(entitlement.NewHTTPSource(cfg.Backend.BaseURL, cfg.Telemetry.Timeout))
	reporter := telemetry.NewReporter(
		telemetry.NewHTTPEndpoint(cfg.Backend.BaseURL, cfg.Telemetry.Timeout),
		sessions,
		telemetry.WithDebounce(cfg.Telemetry.Debounce),
		telemetry.WithTimeout(cfg.Telemetry.Timeout),
	)
	defer reporter.Wait()

	engine, err := player.NewEngine(player.Dependencies{
		Element:      mpv,
		ObjectURLs:   objects.Registry(),
		Entitlements: gate,
		Library:      lib.manager,
		Telemetry:    reporter,
		Notifier:     notifier,
		Navigator: player.NavigatorFunc(func(path string) {
			fmt.Fprintf(out, "Subscribe to listen: %s%s\n", strings.TrimRight(cfg.Backend.BaseURL, "/"), path)
		}),
	}, cfg.Player.DefaultVolume)
	if err != nil {
		mpv.Close()
		return err
	}
	defer engine.Close()

	unsubscribe := engine.Subscribe(func(s player.State) {
		log.Printf("[DEBUG] Playback %s at %.0fs", s.Status, s.Progress)
	})
	defer unsubscribe()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return objects.Serve(gctx)
	})
	g.Go(func() error {
		defer cancel()
		log.Printf("[INFO] Entitlement resolved: %s", gate.Resolve(gctx, current))
		if err := engine.PlayEpisode(gctx, ep); err != nil {
			log.Printf("[WARN] Playback did not start: %v", err)
		}
		return runPlayerCommands(gctx, cmd.InOrStdin(), out, engine, lib)
	})

	return g.Wait()
}

// runPlayerCommands reads one command per line until quit, EOF or ctx ends
func runPlayerCommands(ctx context.Context, in io.Reader, out io.Writer, engine *player.Engine, lib *library) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := handlePlayerCommand(ctx, line, out, engine, lib)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func handlePlayerCommand(ctx context.Context, line string, out io.Writer, engine *player.Engine, lib *library) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "toggle", "t":
		return false, engine.TogglePlayPause(ctx)
	case "pause", "p":
		return false, engine.Pause()
	case "seek":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: seek <seconds>")
		}
		seconds, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid position %q", fields[1])
		}
		return false, engine.Seek(seconds)
	case "vol", "volume":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: vol <0-100>")
		}
		percent, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid volume %q", fields[1])
		}
		return false, engine.SetVolume(percent)
	case "state", "s":
		printState(out, engine.State())
		return false, nil
	case "download", "d":
		state := engine.State()
		if state.CurrentEpisode == nil {
			return false, player.ErrNoEpisode
		}
		return false, lib.manager.Download(ctx, *state.CurrentEpisode)
	case "quit", "q", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func printState(out io.Writer, s player.State) {
	if s.CurrentEpisode == nil {
		fmt.Fprintf(out, "%s, nothing loaded, volume %d%%\n", s.Status, s.Volume)
		return
	}
	source := "stream"
	if s.Source.Local {
		source = "offline"
	}
	fmt.Fprintf(out, "%s: %s [%s] %.0f/%.0fs, volume %d%%\n",
		s.Status, s.CurrentEpisode.Title, source, s.Progress, s.Duration, s.Volume)
}
