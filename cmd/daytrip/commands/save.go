package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"daytrip/internal/metadata"
	"daytrip/internal/playlist"
	"daytrip/internal/resolver"
	"daytrip/internal/shared"
)

// NewSaveCommand creates the save command, which snapshots a remote target
// into a local playlist file instead of downloading it.
func NewSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save TARGET PLAYLIST_FILE",
		Short: "Save a share link or URI as a local playlist file.",
		Long: `save resolves TARGET the same way a download would, then writes the track
list to PLAYLIST_FILE. The file can be downloaded later, survives the remote
playlist being edited or deleted, and entries can be given custom file names
by hand.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runSave,
	}
}

func runSave(cmd *cobra.Command, args []string) error {
	debug, _ := cmd.Flags().GetBool("debug")
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	ident, err := resolver.Resolve(args[0])
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, err := connect(ctx, cfg, debug)
	if err != nil {
		return err
	}

	shared.ColorInfo.Printf("🎵 Resolving %s\n", ident.URI())
	coll, err := metadata.NewFetcher(svc, cfg.MaxTries, debug).Fetch(ctx, ident)
	if err != nil {
		return err
	}
	for _, fail := range coll.Failed {
		shared.ColorWarning.Printf("⚠️ Skipping unavailable item: %s (%v)\n", fail.Title, fail.Err)
	}
	if len(coll.Tracks) == 0 {
		return fmt.Errorf("no available tracks to save")
	}

	pl := &playlist.Playlist{Title: coll.Title}
	if pl.Title == "" {
		pl.Title = coll.Tracks[0].Title
	}
	for _, track := range coll.Tracks {
		pl.Tracks = append(pl.Tracks, playlist.Entry{
			ID: shared.Identifier{Kind: track.Kind, ID: track.ID}.URI(),
		})
	}

	if err := playlist.Save(args[1], pl); err != nil {
		return err
	}
	shared.ColorSuccess.Printf("✅ Saved %d track(s) to %s\n", len(pl.Tracks), args[1])
	return nil
}
