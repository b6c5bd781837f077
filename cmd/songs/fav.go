package songs

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/songlist"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func FavCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "fav",
		Short: "Manage favorite songs",
		SubCmds: []*cobra.Command{
			favAddCmd(),
			favRmCmd(),
			favLsCmd(),
		},
	}.ToCobra()
}

type FavParams struct {
	SongIDs []string `pos:"true" help:"Song ids"`
}

func favAddCmd() *cobra.Command {
	return boa.CmdT[FavParams]{
		Use:         "add",
		Short:       "Add songs to favorites",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *FavParams, cmd *cobra.Command, args []string) {
			if err := updateFavorites(params.SongIDs, true, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "fav add: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func favRmCmd() *cobra.Command {
	return boa.CmdT[FavParams]{
		Use:         "rm",
		Short:       "Remove songs from favorites",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *FavParams, cmd *cobra.Command, args []string) {
			if err := updateFavorites(params.SongIDs, false, os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "fav rm: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func favLsCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List favorite songs",
		RunFunc: func(params *boa.NoParams, cmd *cobra.Command, args []string) {
			if err := listFavorites(os.Stdout); err != nil {
				fmt.Fprintf(os.Stderr, "fav ls: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// updateFavorites edits the config file directly, the daemon picks the change
// up through its config watcher.
func updateFavorites(args []string, add bool, w io.Writer) error {
	ids := make([]int, 0, len(args))
	for _, a := range args {
		id, err := strconv.Atoi(a)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid song id: %q", a)
		}
		ids = append(ids, id)
	}

	cfg, err := config.LoadFile()
	if err != nil {
		return err
	}

	// unknown ids are only rejected when there is a list to check against
	if list, err := songlist.Load(cfg.SongList); err == nil {
		for _, id := range ids {
			if _, err := list.Get(id); err != nil {
				return err
			}
		}
	}

	changed := 0
	for _, id := range ids {
		if add && cfg.AddFavorite(id) || !add && cfg.RemoveFavorite(id) {
			changed++
		}
	}
	if changed == 0 {
		fmt.Fprintln(w, "No changes")
		return nil
	}
	if err := config.Save(cfg); err != nil {
		return err
	}

	verb := "Removed"
	if add {
		verb = "Added"
	}
	fmt.Fprintf(w, "%s %d favorite(s), %d total\n", verb, changed, len(cfg.Favorites))
	return nil
}

func listFavorites(w io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if len(cfg.Favorites) == 0 {
		fmt.Fprintln(w, "No favorites")
		return nil
	}

	list, _ := songlist.Load(cfg.SongList)
	songs := lo.Map(cfg.Favorites, func(id int, _ int) songlist.Song {
		if s, err := list.Get(id); err == nil {
			return s
		}
		return songlist.Song{ID: id}
	})
	renderSongs(w, songs, cfg)
	return nil
}
