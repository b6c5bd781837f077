// Package songs lists and searches the song list and manages favorites.
package songs

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/songlist"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

type Params struct {
	Query     string `pos:"true" optional:"true" help:"Search song names, locations and ids"`
	Favorites bool   `short:"f" help:"Only show favorite songs"`
	Limit     int    `short:"n" help:"Limit number of results (0 = no limit)" default:"0"`
}

func Cmd() *cobra.Command {
	return boa.CmdT[Params]{
		Use:         "songs",
		Short:       "List or search songs",
		Long:        "List the songs from the configured song list (song_list in config, a CSV with id, name and locations). Favorites are marked with ★.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *Params, cmd *cobra.Command, args []string) {
			if err := run(params, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "songs: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func loadList(cfg *config.Config) (*songlist.List, error) {
	list, err := songlist.Load(cfg.SongList)
	if errors.Is(err, songlist.ErrNoSongList) {
		return nil, fmt.Errorf("%w: set song_list in %s", err, config.ConfigPath())
	}
	return list, err
}

func run(params *Params, w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	list, err := loadList(cfg)
	if err != nil {
		return err
	}

	results := list.Search(params.Query)
	if params.Favorites {
		results = lo.Filter(results, func(s songlist.Song, _ int) bool {
			return cfg.IsFavorite(s.ID)
		})
	}
	if params.Limit > 0 && len(results) > params.Limit {
		results = results[:params.Limit]
	}

	if len(results) == 0 {
		fmt.Fprintln(w, "No songs found")
		return nil
	}
	renderSongs(w, results, cfg)
	return nil
}

func renderSongs(w io.Writer, songs []songlist.Song, cfg *config.Config) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	termWidth := common.TermWidth()
	t.SetAllowedRowLength(termWidth)

	// ID=6, Fav=3, borders/padding ~13
	textWidth := (termWidth - 22) / 2
	if textWidth < 20 {
		textWidth = 20
	}

	t.AppendHeader(table.Row{"ID", "", "Name", "Locations"})
	for _, s := range songs {
		fav := ""
		if cfg.IsFavorite(s.ID) {
			fav = "★"
		}
		t.AppendRow(table.Row{s.ID, fav, common.Truncate(s.Name, textWidth), common.Truncate(s.Locations, textWidth)})
	}
	t.AppendFooter(table.Row{"", "", fmt.Sprintf("%d songs", len(songs)), ""})
	t.Render()
}
