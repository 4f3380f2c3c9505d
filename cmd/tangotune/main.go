// Package main provides the CLI entrypoint for tangotune.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/tangotune/internal/audio"
	"github.com/verte-zerg/tangotune/internal/catalog"
	"github.com/verte-zerg/tangotune/internal/config"
	"github.com/verte-zerg/tangotune/internal/generator"
	"github.com/verte-zerg/tangotune/internal/logging"
	"github.com/verte-zerg/tangotune/internal/model"
	"github.com/verte-zerg/tangotune/internal/sched"
	"github.com/verte-zerg/tangotune/internal/stats"
	"github.com/verte-zerg/tangotune/internal/statsui"
	"github.com/verte-zerg/tangotune/internal/store"
	"github.com/verte-zerg/tangotune/internal/tui"
)

const loopBuffer = 64

// gameFlags mirrors the game settings a user can pass on the command line.
type gameFlags struct {
	game        string
	songs       int
	timeLimit   float64
	levels      []int
	styles      []string
	artists     []string
	composers   []string
	candombe    bool
	alternative bool
	cancion     bool
	penalty     float64
	guess       string
	catalog     string
	autoplay    bool
	focusWeak   bool
	weakTop     int
	weakFactor  float64
	weakWindow  int
}

var (
	playFlags gameFlags

	statsPlain       bool
	statsGame        string
	statsSince       string
	statsLast        int
	statsCurveWindow int

	catalogSource string
	catalogLevels []int
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tangotune",
		Short:         "Tango music listening trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGame(cmd, model.ModeQuiz)
		},
	}
	registerGameFlags(rootCmd, &playFlags)

	learnCmd := &cobra.Command{
		Use:   "learn",
		Short: "Listen to snippets with the song details shown",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGame(cmd, model.ModeLearn)
		},
	}
	registerGameFlags(learnCmd, &playFlags)

	rootCmd.AddCommand(learnCmd)
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newCatalogCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func registerGameFlags(cmd *cobra.Command, f *gameFlags) {
	defaults := config.Defaults()
	flags := cmd.Flags()
	flags.StringVar(&f.game, "game", defaults.Game, "game name; settings are remembered per game")
	flags.IntVar(&f.songs, "songs", defaults.NumSongs, "songs per session")
	flags.Float64Var(&f.timeLimit, "time-limit", defaults.TimeLimit, "seconds per round (3-15)")
	flags.IntSliceVar(&f.levels, "levels", defaults.Levels, "artist levels to play")
	flags.StringSliceVar(&f.styles, "styles", defaults.Styles, "styles to play")
	flags.StringSliceVar(&f.artists, "artists", nil, "only play these artists (overrides --levels)")
	flags.StringSliceVar(&f.composers, "composers", nil, "only play songs by these composers")
	flags.BoolVar(&f.candombe, "candombe", false, "include candombe songs")
	flags.BoolVar(&f.alternative, "alternative", false, "include alternative songs")
	flags.BoolVar(&f.cancion, "cancion", false, "include canciones")
	flags.Float64Var(&f.penalty, "penalty", defaults.Penalty, "fraction of the score lost per wrong guess (0-1)")
	flags.StringVar(&f.guess, "guess", string(defaults.Guess), "what to guess: artist or style")
	flags.StringVar(&f.catalog, "catalog", defaults.Catalog, "catalog directory or http(s) base URL")
	flags.BoolVar(&f.autoplay, "autoplay", defaults.Autoplay, "start each snippet without waiting for space")
	flags.BoolVar(&f.focusWeak, "focus-weak", false, "favor artists you miss most")
	flags.IntVar(&f.weakTop, "weak-top", defaults.WeakTop, "number of weak artists to focus on")
	flags.Float64Var(&f.weakFactor, "weak-factor", defaults.WeakFactor, "weight factor for weak artists")
	flags.IntVar(&f.weakWindow, "weak-window", defaults.WeakWindow, "number of recent sessions to compute weak artists")
}

// applyFlags copies every flag the user set explicitly onto cfg.
func applyFlags(cmd *cobra.Command, f gameFlags, cfg *model.GameConfig) {
	changed := cmd.Flags().Changed
	set := func(name string, fn func()) {
		if changed(name) {
			fn()
		}
	}
	set("game", func() { cfg.Game = f.game })
	set("songs", func() { cfg.NumSongs = f.songs })
	set("time-limit", func() { cfg.TimeLimit = f.timeLimit })
	set("levels", func() { cfg.Levels = f.levels })
	set("styles", func() { cfg.Styles = f.styles })
	set("artists", func() { cfg.Artists = f.artists })
	set("composers", func() { cfg.Composers = f.composers })
	set("candombe", func() { cfg.Candombe = f.candombe })
	set("alternative", func() { cfg.Alternative = f.alternative })
	set("cancion", func() { cfg.Cancion = f.cancion })
	set("penalty", func() { cfg.Penalty = f.penalty })
	set("guess", func() { cfg.Guess = model.GuessKind(f.guess) })
	set("catalog", func() { cfg.Catalog = f.catalog })
	set("autoplay", func() { cfg.Autoplay = f.autoplay })
	set("focus-weak", func() { cfg.FocusWeak = f.focusWeak })
	set("weak-top", func() { cfg.WeakTop = f.weakTop })
	set("weak-factor", func() { cfg.WeakFactor = f.weakFactor })
	set("weak-window", func() { cfg.WeakWindow = f.weakWindow })
}

// resolveGameConfig layers defaults, the config file, the settings remembered for
// the game, the environment and finally explicit flags.
func resolveGameConfig(ctx context.Context, cmd *cobra.Command, fileCfg config.FileConfig, env config.Env, st *store.Store) (model.GameConfig, error) {
	cfg := config.Defaults()
	fileCfg.Game.Apply(&cfg, nil)
	if cmd.Flags().Changed("game") {
		cfg.Game = playFlags.game
	}
	if st != nil && cfg.Game != "" {
		saved, ok, err := st.LoadGameConfig(ctx, cfg.Game)
		if err != nil {
			return model.GameConfig{}, fmt.Errorf("failed to load saved settings: %w", err)
		}
		if ok {
			config.ApplySaved(&cfg, saved, nil)
		}
	}
	if env.Catalog != "" {
		cfg.Catalog = env.Catalog
	}
	applyFlags(cmd, playFlags, &cfg)
	return cfg, nil
}

func runGame(cmd *cobra.Command, mode model.Mode) error {
	ctx := cmd.Context()
	fileCfg, env, err := loadSettings()
	if err != nil {
		return err
	}
	closer, err := logging.SetupFile(config.DefaultLogPath(), logLevel(fileCfg, env))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := store.Open(env.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	cfg, err := resolveGameConfig(ctx, cmd, fileCfg, env, st)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	cat, err := catalog.Load(loadCtx, cfg.Catalog)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	var weak []string
	if cfg.FocusWeak && mode == model.ModeQuiz {
		aggs, err := st.GetWeakArtists(ctx, cfg.WeakWindow, cfg.Game)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load weak artists")
		} else if weak = stats.SelectWeakArtists(aggs, cfg.WeakTop); len(weak) == 0 {
			logErrln("no missed artists recorded yet; using normal selection")
		}
	}

	clock := clockwork.NewRealClock()
	loop := sched.NewLoop(clock, loopBuffer)
	defer loop.Close()
	m := tui.NewModel(tui.Deps{
		Sched:   loop,
		Queue:   loop.C(),
		Clock:   clock,
		Players: audio.Factory(audio.DefaultFetcher{}, clock),
		Gen:     generator.New(),
		Store:   st,
		Catalog: cat,
		Config:  cfg,
		Mode:    mode,
		Weak:    weak,
	})
	log.Info().Str("game", cfg.Game).Str("mode", string(mode)).Int("songs", cfg.NumSongs).Msg("starting session")
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return m.Err()
}

func loadSettings() (config.FileConfig, config.Env, error) {
	if err := config.LoadDotEnv(config.DefaultEnvPath()); err != nil {
		return config.FileConfig{}, config.Env{}, err
	}
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return config.FileConfig{}, config.Env{}, fmt.Errorf("failed to load config: %w", err)
	}
	return fileCfg, config.FromEnv(), nil
}

func logLevel(fileCfg config.FileConfig, env config.Env) string {
	if env.LogLevel != "" {
		return env.LogLevel
	}
	if fileCfg.Log.Level != nil {
		return *fileCfg.Log.Level
	}
	return config.DefaultLogLevel
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show quiz stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a plain text report instead of the interactive view")
	cmd.Flags().StringVar(&statsGame, "game", "", "game filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", config.DefaultCurveWindow, "moving average window")
	return cmd
}

func parseSince(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid --since value: %w", err)
	}
	return &parsed, nil
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	since, err := parseSince(statsSince)
	if err != nil {
		return err
	}
	if statsLast < 0 {
		return errors.New("--last must be >= 0")
	}
	if statsCurveWindow < 1 {
		return errors.New("--curve-window must be >= 1")
	}
	cfg := model.StatsConfig{
		Game:        statsGame,
		Since:       since,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
	}

	_, env, err := loadSettings()
	if err != nil {
		return err
	}
	st, err := store.Open(env.DBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		report, err := stats.BuildReport(cmd.Context(), st, cfg)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		return report.Render(out, cfg, stats.TerminalWidth(os.Stdout), stats.UseColor(out))
	}

	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the song catalog",
	}
	cmd.PersistentFlags().StringVar(&catalogSource, "catalog", "", "catalog directory or http(s) base URL")

	artistsCmd := &cobra.Command{
		Use:   "artists",
		Short: "List active artists with their level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := loadCatalogForListing(cmd)
			if err != nil {
				return err
			}
			return writeArtists(cmd.OutOrStdout(), cat, catalogLevels)
		},
	}
	artistsCmd.Flags().IntSliceVar(&catalogLevels, "levels", nil, "only list these levels")

	stylesCmd := &cobra.Command{
		Use:   "styles",
		Short: "List the catalog styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := loadCatalogForListing(cmd)
			if err != nil {
				return err
			}
			return writeLines(cmd.OutOrStdout(), cat.Pool(model.GuessStyle, catalog.Filter{}))
		},
	}

	cmd.AddCommand(artistsCmd, stylesCmd)
	return cmd
}

func loadCatalogForListing(cmd *cobra.Command) (*catalog.Catalog, error) {
	fileCfg, env, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if err := logging.SetupConsole(os.Stderr, logLevel(fileCfg, env)); err != nil {
		return nil, err
	}
	source := config.DefaultCatalogDir()
	if fileCfg.Game.Catalog != nil {
		source = *fileCfg.Game.Catalog
	}
	if env.Catalog != "" {
		source = env.Catalog
	}
	if catalogSource != "" {
		source = catalogSource
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	cat, err := catalog.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}

func writeArtists(w io.Writer, cat *catalog.Catalog, levels []int) error {
	levelOf := make(map[string]int, len(cat.Artists))
	for _, a := range cat.Artists {
		levelOf[a.Name] = a.Level
	}
	names := cat.ArtistNames(levels)
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = fmt.Sprintf("%d  %s", levelOf[name], name)
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	d := config.Defaults()
	levels := make([]string, len(d.Levels))
	for i, lvl := range d.Levels {
		levels[i] = strconv.Itoa(lvl)
	}
	styles := make([]string, len(d.Styles))
	for i, s := range d.Styles {
		styles[i] = strconv.Quote(s)
	}
	return fmt.Sprintf(`# tangotune configuration
# Uncomment a value to enable it. CLI flags override config values.
# Songs, time limit, levels and styles are also remembered per game.

[game]
# name = %q            # Game name (default %q)
# songs = %d              # Songs per session
# time-limit = %.1f       # Seconds per round (3-15)
# levels = [%s]          # Artist levels to play
# styles = [%s]
# artists = []            # Only these artists (overrides levels)
# composers = []          # Only songs by these composers
# candombe = false        # Include candombe songs
# alternative = false     # Include alternative songs
# cancion = false         # Include canciones
# penalty = %.2f          # Fraction of the score lost per wrong guess
# guess = %q         # "artist" or "style"
# catalog = %q
# autoplay = true         # Start snippets without waiting for space
# focus-weak = false      # Favor artists you miss most
# weak-top = %d            # Number of weak artists to focus on
# weak-factor = %.1f      # Weight factor for weak artists
# weak-window = %d        # Number of recent sessions to compute weak artists

[log]
# level = %q          # debug, info, warn, error
`,
		d.Game, d.Game,
		d.NumSongs,
		d.TimeLimit,
		strings.Join(levels, ", "),
		strings.Join(styles, ", "),
		d.Penalty,
		string(d.Guess),
		d.Catalog,
		d.WeakTop,
		d.WeakFactor,
		d.WeakWindow,
		config.DefaultLogLevel,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
