package bgm

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/bgm/player"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/inbox"
	"github.com/spf13/cobra"
)

// How long dump waits for the daemon to answer
var dumpTimeout = 5 * time.Second

type PlayParams struct {
	SongID   int `pos:"true" help:"Song id to play"`
	Priority int `short:"p" help:"Priority slot 0..11 (default: target_priority from config)" default:"0"`
}

func PlayCmd() *cobra.Command {
	return boa.CmdT[PlayParams]{
		Use:         "play",
		Short:       "Play a song",
		Long:        "Ask the daemon to play a song. Lower priorities override higher ones; 0 overrides everything. Stops any running shuffle.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *PlayParams, cmd *cobra.Command, args []string) {
			if err := runPlay(params, cmd.Flags().Changed("priority")); err != nil {
				fmt.Fprintf(os.Stderr, "play: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

// priorityArg returns nil when no priority was given, so the daemon uses the
// configured target priority.
func priorityArg(priority int, given bool) (*int, error) {
	if !given {
		return nil, nil
	}
	if priority < 0 || priority >= control.SlotCount {
		return nil, fmt.Errorf("%w: %d (want 0..%d)", control.ErrPriorityOutOfRange, priority, control.SlotCount-1)
	}
	return &priority, nil
}

func runPlay(params *PlayParams, priorityGiven bool) error {
	if params.SongID <= 0 || params.SongID > 0xFFFF {
		return fmt.Errorf("invalid song id: %d", params.SongID)
	}
	priority, err := priorityArg(params.Priority, priorityGiven)
	if err != nil {
		return err
	}
	return post(inbox.TypePlay, inbox.PlayPayload{SongID: uint16(params.SongID), Priority: priority})
}

type StopParams struct {
	Priority int `short:"p" help:"Priority slot 0..11 (default: target_priority from config)" default:"0"`
}

func StopCmd() *cobra.Command {
	return boa.CmdT[StopParams]{
		Use:         "stop",
		Short:       "Stop the song set by play",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *StopParams, cmd *cobra.Command, args []string) {
			if err := runStop(params, cmd.Flags().Changed("priority")); err != nil {
				fmt.Fprintf(os.Stderr, "stop: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runStop(params *StopParams, priorityGiven bool) error {
	priority, err := priorityArg(params.Priority, priorityGiven)
	if err != nil {
		return err
	}
	return post(inbox.TypeStop, inbox.StopPayload{Priority: priority})
}

type ShuffleParams struct {
	Favorites bool `short:"f" help:"Only shuffle favorite songs"`
}

func ShuffleCmd() *cobra.Command {
	return boa.CmdT[ShuffleParams]{
		Use:         "shuffle",
		Short:       "Shuffle through all songs",
		Long:        "Play songs in random order, moving on when the shuffle interval has passed or the current song ends.",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *ShuffleParams, cmd *cobra.Command, args []string) {
			if err := post(inbox.TypeShuffle, inbox.ShufflePayload{FavoritesOnly: params.Favorites}); err != nil {
				fmt.Fprintf(os.Stderr, "shuffle: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func UnshuffleCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "unshuffle",
		Short: "Stop shuffling, keeping the current song",
		RunFunc: func(params *boa.NoParams, cmd *cobra.Command, args []string) {
			if err := post(inbox.TypeUnshuffle, nil); err != nil {
				fmt.Fprintf(os.Stderr, "unshuffle: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func DumpCmd() *cobra.Command {
	return boa.CmdT[boa.NoParams]{
		Use:   "dump",
		Short: "Show the BGM control blocks of the running game",
		RunFunc: func(params *boa.NoParams, cmd *cobra.Command, args []string) {
			if err := runDump(); err != nil {
				fmt.Fprintf(os.Stderr, "dump: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func runDump() error {
	id, err := inbox.Post(inbox.TypeDump, nil)
	if err != nil {
		return err
	}

	d, err := awaitDump(id, dumpTimeout)
	if err != nil {
		return err
	}
	if d.Error != "" {
		return errors.New(d.Error)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	player.RenderDump(os.Stdout, d.Diagnostics, loadSongs(cfg))
	return nil
}

// awaitDump waits for the daemon to answer dump request id.
func awaitDump(id string, timeout time.Duration) (player.DumpFile, error) {
	deadline := time.Now().Add(timeout)
	for {
		if d, err := player.LoadDump(); err == nil && d.RequestID == id {
			return d, nil
		}
		if time.Now().After(deadline) {
			return player.DumpFile{}, fmt.Errorf("no answer from daemon within %s, is 'orchestrion run' running?", timeout)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func post(msgType string, payload any) error {
	id, err := inbox.Post(msgType, payload)
	if err != nil {
		return fmt.Errorf("failed to post %s request: %w", msgType, err)
	}
	fmt.Printf("Sent %s request %s\n", msgType, id[:8])
	return nil
}
