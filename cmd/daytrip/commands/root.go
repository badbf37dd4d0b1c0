// Package commands wires the CLI surface: flag handling, target dispatch,
// and the download run itself.
package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"daytrip/internal/api/spotify"
	"daytrip/internal/auth"
	"daytrip/internal/config"
	"daytrip/internal/core/downloader"
	"daytrip/internal/interfaces"
	"daytrip/internal/metadata"
	"daytrip/internal/naming"
	"daytrip/internal/playlist"
	"daytrip/internal/resolver"
	"daytrip/internal/shared"
)

// NewRootCommand creates the root download command.
func NewRootCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "daytrip [flags] TARGET [LOCATION]",
		Version: version,
		Short:   "Download music from a share link, URI, or playlist file.",
		Long: `daytrip resolves a share link, a native URI, or a local playlist file,
fetches the metadata for every track it references, and downloads the audio
into named files.

TARGET can be:
- a share link  (https://open.spotify.com/track/...)
- a native URI  (spotify:album:...)
- a playlist file saved with "daytrip save"

LOCATION is the destination directory. For a single track it may instead be
an exact file name whose extension picks the output format.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDownload,
	}

	cmd.PersistentFlags().String("config", "", "Path to the config file")
	cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	cmd.Flags().String("format", "", "Output format (opus, mp3, ogg, wav)")
	cmd.Flags().String("name-format", "", "File name template (%a artist, %A all artists, %t title, %n track number)")
	cmd.Flags().StringArray("cleanup-regex", nil, "Regex whose first capture group is removed from names (repeatable)")
	cmd.Flags().Bool("remove-feature-tags", false, "Strip (feat. ...) tags from file names")
	cmd.Flags().Bool("force", false, "Re-download files that already exist")
	cmd.Flags().Int("max-tries", 0, "Attempts per network operation before giving up")
	cmd.Flags().Int("parallelism", 0, "Number of concurrent downloads")

	cmd.AddCommand(NewSaveCommand())
	return cmd
}

// loadSettings merges the config file with any explicitly set flags.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("format") {
		cfg.Format, _ = cmd.Flags().GetString("format")
	}
	if cmd.Flags().Changed("name-format") {
		cfg.NameFormat, _ = cmd.Flags().GetString("name-format")
	}
	if cmd.Flags().Changed("max-tries") {
		cfg.MaxTries, _ = cmd.Flags().GetInt("max-tries")
	}
	if cmd.Flags().Changed("parallelism") {
		cfg.Parallelism, _ = cmd.Flags().GetInt("parallelism")
	}
	if cfg.MaxTries < 1 || cfg.Parallelism < 1 {
		return nil, fmt.Errorf("max-tries and parallelism must be at least 1")
	}
	return cfg, nil
}

// compileCleanups builds the ordered cleanup pattern list from the config
// file and the command line.
func compileCleanups(cmd *cobra.Command, cfg *config.Config) ([]*regexp.Regexp, error) {
	var cleanups []*regexp.Regexp

	add := func(expr string) error {
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid cleanup regex %q: %w", expr, err)
		}
		cleanups = append(cleanups, re)
		return nil
	}

	if cfg.CleanupRegex != "" {
		if err := add(cfg.CleanupRegex); err != nil {
			return nil, err
		}
	}
	exprs, _ := cmd.Flags().GetStringArray("cleanup-regex")
	for _, expr := range exprs {
		if err := add(expr); err != nil {
			return nil, err
		}
	}
	if removeTags, _ := cmd.Flags().GetBool("remove-feature-tags"); removeTags {
		cleanups = append(cleanups, naming.FeatureTagPattern)
	}
	return cleanups, nil
}

// connect builds the authenticated service the run will talk to.
func connect(ctx context.Context, cfg *config.Config, debug bool) (interfaces.StreamingService, error) {
	svc := spotify.NewClient(cfg.ClientID, cfg.ClientSecret, debug)

	cachePath, err := auth.DefaultCachePath()
	if err != nil {
		return nil, err
	}
	if _, err := auth.NewCache(cachePath, debug).EnsureValid(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// resolveTarget dispatches the target string: a readable playlist file wins,
// anything else goes through the link resolver. A file that exists but does
// not parse aborts instead of falling through.
func resolveTarget(target string) (*playlist.Playlist, shared.Identifier, error) {
	pl, err := playlist.Load(target)
	if err == nil {
		return pl, shared.Identifier{}, nil
	}
	var perr *playlist.ParseError
	if errors.As(err, &perr) {
		return nil, shared.Identifier{}, err
	}

	ident, err := resolver.Resolve(target)
	if err != nil {
		return nil, shared.Identifier{}, err
	}
	return nil, ident, nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	cleanups, err := compileCleanups(cmd, cfg)
	if err != nil {
		return err
	}

	format, err := shared.ParseOutputFormat(cfg.Format)
	if err != nil {
		return err
	}

	// LOCATION may name an exact output file for single-track targets; its
	// extension picks the format unless --format was given explicitly.
	location := cfg.DownloadLocation
	singleFile := ""
	if len(args) == 2 {
		location = args[1]
		if derived, err := shared.ParseOutputFormat(filepath.Ext(location)); err == nil && filepath.Ext(location) != "" {
			singleFile = filepath.Base(location)
			location = filepath.Dir(location)
			if !cmd.Flags().Changed("format") {
				format = derived
			}
		}
	}

	if !downloader.CheckFFmpeg() {
		return fmt.Errorf("ffmpeg not found in PATH; install it to encode downloads")
	}

	pl, ident, err := resolveTarget(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := connect(ctx, cfg, debug)
	if err != nil {
		return err
	}

	fetcher := metadata.NewFetcher(svc, cfg.MaxTries, debug)
	var coll *shared.Collection
	if pl != nil {
		shared.ColorInfo.Printf("🎵 Resolving playlist %q (%d entries)\n", pl.Title, len(pl.Tracks))
		coll, err = fetcher.FetchPlaylist(ctx, pl)
	} else {
		shared.ColorInfo.Printf("🎵 Resolving %s\n", ident.URI())
		coll, err = fetcher.Fetch(ctx, ident)
	}
	if err != nil {
		return err
	}

	if singleFile != "" && len(coll.Tracks) != 1 {
		return fmt.Errorf("%s names a single file but the target has %d tracks", args[1], len(coll.Tracks))
	}

	orch := downloader.New(svc, downloader.FFmpegEncoder{}, downloader.Options{
		Location:     location,
		SingleFile:   singleFile,
		Format:       format,
		NameTemplate: cfg.NameFormat,
		Cleanups:     cleanups,
		Force:        mustBool(cmd, "force"),
		MaxTries:     cfg.MaxTries,
		Parallelism:  cfg.Parallelism,
		Debug:        debug,
	})

	stats, err := orch.Run(ctx, coll)
	printSummary(stats, location)

	if err != nil {
		if errors.Is(err, shared.ErrDownloadCancelled) {
			shared.ColorWarning.Println("⚠️ Download cancelled.")
		}
		return err
	}
	if stats.FailedCount > 0 {
		return fmt.Errorf("%d download(s) failed", stats.FailedCount)
	}
	shared.ColorSuccess.Println("✅ Download completed!")
	return nil
}

func printSummary(stats *shared.DownloadStats, location string) {
	if stats == nil || (stats.SuccessCount == 0 && stats.FailedCount == 0 && stats.SkippedCount == 0) {
		return
	}

	fmt.Println()
	shared.ColorInfo.Println("📊 Download Summary:")
	if stats.SuccessCount > 0 {
		shared.ColorSuccess.Printf("✅ Successfully downloaded: %d\n", stats.SuccessCount)
	}
	if stats.SkippedCount > 0 {
		shared.ColorWarning.Printf("⏭️  Skipped (already exists): %d\n", stats.SkippedCount)
	}
	if stats.FailedCount > 0 {
		shared.ColorError.Printf("❌ Failed: %d\n", stats.FailedCount)
		if len(stats.FailedItems) > 0 {
			shared.ColorError.Printf("   %s\n", strings.Join(stats.FailedItems, "\n   "))
		}
	}
	if stats.SuccessCount > 0 {
		shared.ColorSuccess.Printf("📁 Saved to: %s\n", location)
	}
}

func mustBool(cmd *cobra.Command, name string) bool {
	v, _ := cmd.Flags().GetBool(name)
	return v
}
