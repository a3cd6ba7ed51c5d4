// Package main provides the CLI entrypoint for diktor.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/diktor/internal/capture"
	"github.com/verte-zerg/diktor/internal/catalog"
	"github.com/verte-zerg/diktor/internal/config"
	"github.com/verte-zerg/diktor/internal/history"
	"github.com/verte-zerg/diktor/internal/logging"
	"github.com/verte-zerg/diktor/internal/model"
	"github.com/verte-zerg/diktor/internal/recognition"
	"github.com/verte-zerg/diktor/internal/session"
	"github.com/verte-zerg/diktor/internal/stats"
	"github.com/verte-zerg/diktor/internal/statsui"
	"github.com/verte-zerg/diktor/internal/store"
	"github.com/verte-zerg/diktor/internal/tui"
)

const (
	defaultLevel      = "beginner"
	defaultRecognizer = recognition.BackendAuto
	defaultDays       = 30
)

var (
	practiceLevel      string
	practiceLang       string
	practiceRecognizer string
	practiceModel      string
	practiceBaseURL    string
	practiceDevice     string
	logLevel           string
	logFormat          string

	exercisesLevel string

	historySince string
	historyLast  int
	historyDays  int
	historyClear bool
	historyPlain bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "diktor",
		Short:         "TUI diction trainer",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceLevel, "level", defaultLevel, "difficulty: beginner, intermediate or advanced")
	rootCmd.Flags().StringVar(&practiceLang, "lang", session.DefaultLanguage, "recognition language tag")
	rootCmd.Flags().StringVar(&practiceRecognizer, "recognizer", defaultRecognizer, "speech backend: auto, whisper, google or none")
	rootCmd.Flags().StringVar(&practiceModel, "model", "", "whisper model name")
	rootCmd.Flags().StringVar(&practiceBaseURL, "base-url", "", "OpenAI-compatible API base URL")
	rootCmd.Flags().StringVar(&practiceDevice, "device", "", "capture device name or ID")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "diagnostics level: debug, info, warn, error or disabled")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newExercisesCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newDevicesCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "level", &practiceLevel, fileCfg.Practice.Level)
	applyStringConfig(cmd, "lang", &practiceLang, fileCfg.Practice.Lang)
	applyStringConfig(cmd, "recognizer", &practiceRecognizer, fileCfg.Recognition.Backend)
	applyStringConfig(cmd, "model", &practiceModel, fileCfg.Recognition.Model)
	applyStringConfig(cmd, "base-url", &practiceBaseURL, fileCfg.Recognition.BaseURL)
	applyStringConfig(cmd, "device", &practiceDevice, fileCfg.Audio.Device)
	applyStringConfig(cmd, "log-level", &logLevel, fileCfg.Log.Level)
	logFormat = "console"
	if fileCfg.Log.Format != nil {
		logFormat = *fileCfg.Log.Format
	}

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	logger, err := logging.Init(logging.Config{Level: logLevel, Format: logFormat, Path: config.DefaultLogPath()})
	if err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	defer func() {
		if cerr := logger.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	hist := history.New(st, logger.WithComponent("history"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessionCfg := session.Config{
		Picker:     catalog.NewPicker(),
		History:    hist,
		Difficulty: cfg.Level,
		Lang:       cfg.Lang,
		Logger:     logger.WithComponent("session"),
	}

	recordingsDir := config.RecordingsDir()
	captureLog := logger.WithComponent("capture")
	mic, err := capture.NewMicrophone(capture.Config{Device: cfg.Device}, recordingsDir, captureLog)
	if err != nil {
		// Practice continues without recording or recognition.
		captureLog.Warn().Err(err).Msg("audio unavailable")
	} else {
		defer func() {
			mic.Close()
			if rerr := capture.RemoveDir(recordingsDir); rerr != nil {
				logErrf("failed to remove recordings: %v\n", rerr)
			}
		}()
		sessionCfg.Capture = captureAdapter{mic: mic}
		sessionCfg.Player = playerAdapter{player: mic.Player()}

		rec, err := openRecognizer(ctx, cfg, mic, logger.WithComponent("recognition"))
		if err != nil {
			return err
		}
		if closer, ok := rec.(io.Closer); ok {
			defer func() {
				if cerr := closer.Close(); cerr != nil {
					logErrf("failed to close recognizer: %v\n", cerr)
				}
			}()
		}
		sessionCfg.Recognizer = rec
	}

	ctrl := session.New(ctx, sessionCfg)
	defer ctrl.Close()

	m := tui.NewModel(ctrl, logger.WithComponent("tui"))
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// openRecognizer returns a nil recognizer when recognition is unavailable so
// practice still works without it.
func openRecognizer(ctx context.Context, cfg model.Config, mic *capture.Microphone, log zerolog.Logger) (recognition.Recognizer, error) {
	rec, err := recognition.Open(ctx, recognition.Config{
		Backend: cfg.Recognizer,
		Model:   cfg.Model,
		BaseURL: cfg.BaseURL,
	}, mic, nil, log)
	if errors.Is(err, recognition.ErrUnsupported) {
		log.Info().Str("backend", cfg.Recognizer).Msg("speech recognition disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to init recognizer: %w", err)
	}
	log.Info().Str("backend", rec.Name()).Msg("speech recognition ready")
	return rec, nil
}

func buildConfig() (model.Config, error) {
	level, err := model.ParseDifficulty(practiceLevel)
	if err != nil {
		return model.Config{}, fmt.Errorf("--level: %w", err)
	}
	lang := strings.TrimSpace(practiceLang)
	if lang == "" {
		return model.Config{}, fmt.Errorf("--lang must not be empty")
	}
	return model.Config{
		Level:      level,
		Lang:       lang,
		Recognizer: strings.TrimSpace(practiceRecognizer),
		Model:      strings.TrimSpace(practiceModel),
		BaseURL:    strings.TrimSpace(practiceBaseURL),
		Device:     strings.TrimSpace(practiceDevice),
	}, nil
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
		template := config.Template(defaultLevel, session.DefaultLanguage, defaultRecognizer)
		if err := os.WriteFile(path, []byte(template), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func newExercisesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercises",
		Short: "List built-in exercises",
		Args:  cobra.NoArgs,
		RunE:  runExercisesCmd,
	}
	cmd.Flags().StringVar(&exercisesLevel, "level", "", "difficulty filter")
	return cmd
}

func runExercisesCmd(cmd *cobra.Command, _ []string) error {
	list := catalog.All()
	if exercisesLevel != "" {
		level, err := model.ParseDifficulty(exercisesLevel)
		if err != nil {
			return fmt.Errorf("--level: %w", err)
		}
		list = catalog.ByDifficulty(level)
	}
	if err := stats.RenderCatalog(cmd.OutOrStdout(), list); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed exercises",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&historySince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&historyLast, "last", 0, "limit to last N completions")
	cmd.Flags().IntVar(&historyDays, "days", defaultDays, "days shown in the daily chart")
	cmd.Flags().BoolVar(&historyClear, "clear", false, "delete the stored history")
	cmd.Flags().BoolVar(&historyPlain, "plain", false, "print a text report instead of the interactive view")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter, err := historyFilter()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	hist := history.New(st, zerolog.Nop())
	ctx := context.Background()

	if historyClear {
		if err := hist.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		logErrln("History cleared.")
		return nil
	}

	out := cmd.OutOrStdout()
	if historyPlain || !isTerminal(out) {
		records, err := hist.Records(ctx)
		if err != nil {
			return fmt.Errorf("failed to load history: %w", err)
		}
		report := stats.BuildReport(records, filter, time.Now(), historyDays)
		return renderHistory(out, report)
	}

	m := statsui.NewModel(hist.Records, catalog.Lookup, filter, historyDays)
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run history TUI: %w", err)
	}
	return nil
}

func historyFilter() (model.HistoryFilter, error) {
	var filter model.HistoryFilter
	if historySince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", historySince, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if historyLast < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	if historyDays <= 0 {
		return filter, fmt.Errorf("--days must be > 0")
	}
	filter.Last = historyLast
	return filter, nil
}

func renderHistory(w io.Writer, report stats.Report) error {
	if err := stats.RenderSummary(w, report); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderExerciseTable(w, report, catalog.Lookup); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderDaily(w, report, stats.TerminalWidth(), false); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List capture devices",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	mic, err := capture.NewMicrophone(capture.Config{}, config.RecordingsDir(), zerolog.Nop())
	if err != nil {
		return fmt.Errorf("failed to init audio: %w", err)
	}
	defer mic.Close()

	devices, err := mic.Devices()
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}
	if len(devices) == 0 {
		logErrln("No capture devices found.")
		return nil
	}
	for _, d := range devices {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", d.ID, d.Name); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
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
