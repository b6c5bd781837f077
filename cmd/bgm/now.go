package bgm

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/gigurra/orchestrion/cmd/bgm/player"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/spf13/cobra"
)

// Overridable for tests
var clipboardWriteAll = clipboard.WriteAll

type NowParams struct {
	Clip bool `short:"c" help:"Copy the song title to the clipboard"`
}

func NowCmd() *cobra.Command {
	return boa.CmdT[NowParams]{
		Use:         "now",
		Short:       "Show the song that is playing",
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *NowParams, cmd *cobra.Command, args []string) {
			line, err := runNow(params)
			if err != nil {
				fmt.Fprintf(os.Stderr, "now: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(line)
		},
	}.ToCobra()
}

func runNow(params *NowParams) (string, error) {
	st, err := player.LoadState()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("no state yet, is 'orchestrion run' running?")
		}
		return "", err
	}

	if st.SongID == 0 {
		return "Nothing is playing.", nil
	}

	label := st.Title
	if label == "" {
		label = fmt.Sprintf("song %d", st.SongID)
	}

	if params.Clip {
		if err := clipboardWriteAll(label); err != nil {
			return "", fmt.Errorf("failed to copy to clipboard: %w", err)
		}
	}

	since := st.Updated.Local().Format(time.TimeOnly)
	style := lipgloss.NewStyle().Italic(true)
	return fmt.Sprintf("Now playing %s. (since %s)", style.Render(label), since), nil
}
