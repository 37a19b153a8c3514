// Package main provides the entry point for the ebuptts CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CasualC-er/ebupTTS/internal/book"
	"github.com/CasualC-er/ebupTTS/internal/cache"
	"github.com/CasualC-er/ebupTTS/internal/encode"
	"github.com/CasualC-er/ebupTTS/internal/pipeline"
	"github.com/CasualC-er/ebupTTS/internal/segment"
	"github.com/CasualC-er/ebupTTS/internal/synth"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	input        string
	output       string
	formatName   string
	quality      float64
	voice        string
	speed        float64
	pitch        float64
	workers      int
	chunkSize    int
	cacheDir     string
	maxCacheMB   int
	noCache      bool
	noAggressive bool
	debug        bool

	format     encode.Format
	params     synth.Params
	useCache   bool
	aggressive bool

	rootCmd = &cobra.Command{
		Use:   "ebuptts",
		Short: "Turn EPUB books into audiobooks",
		Long: paragraph(fmt.Sprintf(
			"\nTurn EPUB books into %s using the speech engines and audio encoders already on this machine.",
			keyword("audiobooks"))),
		Example:          "  ebuptts -i book.epub -o audiobook -f mp3\n  ebuptts -i book.epub -s 1.2 --no-cache",
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: runConvert,
	}
)

// validateOptions merges flag, config and environment values and
// checks them before any command runs.
func validateOptions(cmd *cobra.Command) error {
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}

	formatName = viper.GetString("format")
	quality = viper.GetFloat64("quality")
	voice = viper.GetString("voice")
	speed = viper.GetFloat64("speed")
	pitch = viper.GetFloat64("pitch")
	workers = viper.GetInt("workers")
	chunkSize = viper.GetInt("chunk_size")
	cacheDir = viper.GetString("cache.dir")
	maxCacheMB = viper.GetInt("cache.max_mb")

	// The config file carries the positive settings; the flags are
	// spelled as negations, so a flag given on the command line wins.
	useCache = viper.GetBool("cache.enabled")
	if cmd.Flags().Changed("no-cache") {
		useCache = !noCache
	}
	aggressive = viper.GetBool("aggressive_clean")
	if cmd.Flags().Changed("no-aggressive") {
		aggressive = !noAggressive
	}

	var err error
	format, err = encode.ParseFormat(formatName)
	if err != nil {
		return err
	}

	params = synth.Params{
		Voice:      voice,
		Speed:      speed,
		Pitch:      pitch,
		SampleRate: viper.GetInt("sample_rate"),
	}
	if err := params.Validate(); err != nil {
		return err
	}

	for _, p := range []*string{&input, &output, &cacheDir} {
		if *p == "" {
			continue
		}
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("unable to expand path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

func runConvert(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store := buildStore()
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Closing audio cache failed", "err", err)
		}
	}()

	selector := synth.NewSelector(synth.DefaultEngines(params)...)
	result, err := selector.Probe(ctx)
	if err != nil {
		return reportFailure(&pipeline.ConvertError{
			Code:    pipeline.CodeBackendUnavailable,
			Message: "no synthesis engine found",
			Unit:    -1,
			Cause:   err,
		})
	}
	log.Info("Synthesis engine ready", "engine", result.Engine)

	conv, err := book.New(book.Options{
		Input:      input,
		OutputDir:  output,
		Format:     format,
		Quality:    quality,
		Params:     params,
		Workers:    workers,
		ChunkSize:  chunkSize,
		Aggressive: aggressive,
	}, selector, store)
	if err != nil {
		return err
	}
	defer conv.Close()

	sum, err := conv.Convert(ctx, logProgress)
	if err != nil {
		return reportFailure(err)
	}

	printSummary(sum)
	return nil
}

func logProgress(chapter string, completed, total int) {
	log.Info("Synthesis progress", "chapter", chapter, "units", fmt.Sprintf("%d/%d", completed, total))
}

// buildStore opens the configured audio cache. Cache trouble never
// blocks a conversion; the run just proceeds uncached.
func buildStore() cache.Store {
	if !useCache {
		log.Debug("Audio cache disabled")
		return cache.Noop{}
	}
	cfg := cache.DefaultConfig()
	cfg.Dir = cacheDir
	cfg.DiskBytes = int64(maxCacheMB) * 1024 * 1024
	store, err := cache.New(cfg)
	if err != nil {
		log.Warn("Audio cache unavailable, continuing without it", "err", err)
		return cache.Noop{}
	}
	return store
}

func reportFailure(err error) error {
	var convErr *pipeline.ConvertError
	if errors.As(err, &convErr) {
		log.Error("Conversion failed", "code", convErr.Code)
		if remedy := convErr.Remedy(); remedy != "" {
			fmt.Fprintln(os.Stderr, paragraph(remedy))
		}
	}
	return err
}

func printSummary(sum *book.Summary) {
	stats := sum.CacheStats
	lines := []string{
		sum.BookTitle,
		fmt.Sprintf("%d chapters, %d skipped, %d units", sum.Chapters, sum.Skipped, sum.Units),
		fmt.Sprintf("%s of audio rendered in %s", sum.Duration.Round(time.Second), sum.Elapsed.Round(time.Second)),
		fmt.Sprintf("engine %s, cache %.0f%% hits, %s stored",
			sum.Engine, stats.HitRate()*100, humanize.Bytes(uint64(stats.Bytes))),
		subtle(sum.Playlist),
	}
	fmt.Println()
	fmt.Println(keyword("Audiobook ready"))
	fmt.Println(paragraph(strings.Join(lines, "\n")))
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

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&input, "input", "i", "", "EPUB file to convert")
	rootCmd.Flags().StringVarP(&output, "output", "o", "./audiobook", "output directory")
	rootCmd.Flags().StringVarP(&formatName, "format", "f", "vorbis", "output audio format (vorbis, flac, mp3, wav)")
	rootCmd.Flags().Float64VarP(&quality, "quality", "q", 0.7, "encoder quality from 0.0 to 1.0")
	rootCmd.Flags().StringVar(&voice, "voice", synth.DefaultVoice, "synthesis voice")
	rootCmd.Flags().Float64VarP(&speed, "speed", "s", 1.0, "voice speed multiplier")
	rootCmd.Flags().Float64Var(&pitch, "pitch", 1.0, "voice pitch multiplier")
	rootCmd.Flags().IntVarP(&workers, "workers", "w", 0, "synthesis workers (0 picks the CPU count)")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", segment.DefaultMaxUnitChars, "characters per synthesis unit")
	rootCmd.Flags().StringVar(&cacheDir, "cache-dir", "tts_cache", "directory for cached audio")
	rootCmd.Flags().IntVar(&maxCacheMB, "max-cache", 512, "cached audio budget in MB")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "do not keep rendered audio between runs")
	rootCmd.Flags().BoolVar(&noAggressive, "no-aggressive", false, "skip abbreviation expansion and hyphenation repair")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log debug events")
	_ = rootCmd.MarkFlagRequired("input")

	_ = viper.BindPFlag("format", rootCmd.Flags().Lookup("format"))
	_ = viper.BindPFlag("quality", rootCmd.Flags().Lookup("quality"))
	_ = viper.BindPFlag("voice", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("speed", rootCmd.Flags().Lookup("speed"))
	_ = viper.BindPFlag("pitch", rootCmd.Flags().Lookup("pitch"))
	_ = viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	_ = viper.BindPFlag("chunk_size", rootCmd.Flags().Lookup("chunk-size"))
	_ = viper.BindPFlag("cache.dir", rootCmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("cache.max_mb", rootCmd.Flags().Lookup("max-cache"))
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))

	viper.SetDefault("format", "vorbis")
	viper.SetDefault("quality", 0.7)
	viper.SetDefault("voice", synth.DefaultVoice)
	viper.SetDefault("speed", 1.0)
	viper.SetDefault("pitch", 1.0)
	viper.SetDefault("workers", 0)
	viper.SetDefault("chunk_size", segment.DefaultMaxUnitChars)
	viper.SetDefault("sample_rate", synth.DefaultSampleRate)
	viper.SetDefault("cache.dir", "tts_cache")
	viper.SetDefault("cache.max_mb", 512)
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("aggressive_clean", true)

	rootCmd.AddCommand(configCmd, manCmd, doctorCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "ebuptts")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "ebuptts")}, dirs...)
	}

	if c := os.Getenv("EBUPTTS_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("ebuptts")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("ebuptts")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "ebuptts.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
