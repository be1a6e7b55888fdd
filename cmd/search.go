package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"echofm/config"
	"echofm/core/catalog"
	"echofm/core/itunes"
	"echofm/db"
	"echofm/model"
	"echofm/repository"

	"github.com/spf13/cobra"
)

var searchKind string

// searchCmd runs a catalog search from the command line, caching the results
// like the API would. Handy for seeding the catalog and debugging upstream
// responses.
var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog and cache the results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		if err := db.Connect(cfg); err != nil {
			return err
		}
		defer db.Close()

		if err := db.AutoMigrate(&model.Media{}); err != nil {
			return err
		}

		provider := itunes.NewClient(cfg.ITunesBaseURL)
		store := repository.NewMediaRepository(db.DB)
		corpus := catalog.NewCorpus(cfg.FeedKeywords)
		service := catalog.NewService(provider, store, corpus)

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		var (
			result model.SearchResponse
			err    error
		)
		switch searchKind {
		case "album":
			result, err = service.SearchAlbums(ctx, args[0])
		case "artist":
			result, err = service.SearchArtists(ctx, args[0])
		case "track":
			result, err = service.SearchTracks(ctx, args[0])
		default:
			return fmt.Errorf("unknown kind %q (want album, track or artist)", searchKind)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	searchCmd.Flags().StringVarP(&searchKind, "kind", "k", "track", "media kind: album, track or artist")
	rootCmd.AddCommand(searchCmd)
}
