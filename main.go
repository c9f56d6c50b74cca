// Package main provides the entry point for the localtts CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/localtts/tts"
	"github.com/dgnsrekt/localtts/tts/audio"
	"github.com/dgnsrekt/localtts/tts/engines"
	"github.com/dgnsrekt/localtts/ui"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	debug      bool
	mouse      bool

	// ttsConfig is loaded once flags are parsed.
	ttsConfig tts.Config

	rootCmd = &cobra.Command{
		Use:   "localtts [FILE]",
		Short: "Read text aloud with on-device voices",
		Long: paragraph(
			fmt.Sprintf("\nRead text aloud and save it as WAV, %s.", keyword("without leaving your machine")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return []string{"txt", "md", "markdown"}, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	mouse = viper.GetBool("mouse")

	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return err
	}
	ttsConfig = cfg
	log.Debug("configuration loaded", "engine", cfg.Engine, "voice", cfg.Voice, "file", viper.ConfigFileUsed())
	return nil
}

func execute(cmd *cobra.Command, args []string) error {
	// Without a terminal there is no UI to draw, so just say the file.
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		text, err := readInput(args, "", os.Stdin)
		if err != nil {
			return err
		}
		return runSpeak(cmd.Context(), ttsConfig, text, cmd.ErrOrStderr())
	}

	var path string
	if len(args) == 1 {
		p, err := filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("unable to get absolute path: %w", err)
		}
		if _, ok := tts.ImportText(p); !ok {
			return fmt.Errorf("%s: %w", args[0], tts.ErrNotText)
		}
		path = p
	}
	return runTUI(path)
}

func runTUI(path string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.Path = path
	cfg.Voice = ttsConfig.Voice
	if mouse {
		cfg.EnableMouse = true
	}

	synth, err := newSynthesizer(ttsConfig, true)
	if err != nil {
		return err
	}
	defer synth.Close() //nolint:errcheck

	session := ui.Session{
		Synth:     synth,
		Defaults:  ttsConfig.Utterance(),
		ExportDir: ttsConfig.ExportDir,
		Logger:    log.Default(),
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, session).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// newSynthesizer builds the configured engine. With speaker set it plays
// on the default audio device, falling back to silent playback when
// there is none.
func newSynthesizer(cfg tts.Config, speaker bool) (*engines.Synthesizer, error) {
	var out audio.Output
	if speaker {
		p, err := audio.NewPlayer(cfg.AudioPlayerConfig())
		if err != nil {
			log.Warn("No audio device, playback will be silent", "err", err)
		} else {
			out = p
		}
	}
	if out == nil {
		out = audio.NewNullOutput(audio.Format{SampleRate: cfg.Player.SampleRate, Channels: 1, BitDepth: 16}, 1)
	}

	synth, err := engines.New(cfg, out, log.Default().WithPrefix("engine"))
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("unable to start engine: %w", err)
	}
	log.Debug("engine ready", "engine", synth.Name())
	return synth, nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", configFile, "config file")
	flags.BoolVar(&debug, "debug", false, "write debug output to the log file")
	flags.String("engine", tts.EngineAuto, "speech engine (auto, piper, espeak or mock)")
	flags.String("voice", "", "voice ID or name")
	flags.Float64("rate", float64(tts.NeutralRate), fmt.Sprintf("speaking rate (%.1f-%.1f, %.1f is normal)", tts.MinRate, tts.MaxRate, tts.NeutralRate))
	flags.Float64("volume", 1, fmt.Sprintf("volume (%.1f-%.1f)", tts.MinVolume, tts.MaxVolume))
	flags.Float64("pitch", 1, fmt.Sprintf("pitch multiplier (%.1f-%.1f)", tts.MinPitch, tts.MaxPitch))
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("tts.engine", flags.Lookup("engine"))
	_ = viper.BindPFlag("tts.voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("tts.rate", flags.Lookup("rate"))
	_ = viper.BindPFlag("tts.volume", flags.Lookup("volume"))
	_ = viper.BindPFlag("tts.pitch", flags.Lookup("pitch"))

	viper.SetDefault("debug", false)
	viper.SetDefault("mouse", false)
	tts.SetDefaults()

	rootCmd.AddCommand(speakCmd, exportCmd, voicesCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "localtts")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "localtts")}, dirs...)
	}

	if c := os.Getenv("LOCALTTS_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	// .env files only fill in what the environment leaves unset.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Could not parse .env file", "err", err)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("localtts")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("localtts")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		configFile = used
		return
	}
	configFile = filepath.Join(dirs[0], "localtts.yml")
}
