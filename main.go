package main

import (
	"runtime/debug"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/orchestrion/cmd/bgm"
	"github.com/gigurra/orchestrion/cmd/songs"
	"github.com/spf13/cobra"
)

// Command group IDs
const (
	groupDaemon   = "daemon"
	groupPlayback = "playback"
	groupLibrary  = "library"
)

// withGroup sets the GroupID on a command and returns it
func withGroup(cmd *cobra.Command, group string) *cobra.Command {
	cmd.GroupID = group
	return cmd
}

func main() {
	boa.CmdT[boa.NoParams]{
		Use:     "orchestrion",
		Short:   "Control the game's background music",
		Version: appVersion(),
		Groups: []*cobra.Group{
			{ID: groupDaemon, Title: "Daemon:"},
			{ID: groupPlayback, Title: "Playback:"},
			{ID: groupLibrary, Title: "Song Library:"},
		},
		SubCmds: []*cobra.Command{
			// Daemon
			withGroup(bgm.RunCmd(), groupDaemon),
			withGroup(bgm.DumpCmd(), groupDaemon),

			// Playback
			withGroup(bgm.PlayCmd(), groupPlayback),
			withGroup(bgm.StopCmd(), groupPlayback),
			withGroup(bgm.ShuffleCmd(), groupPlayback),
			withGroup(bgm.UnshuffleCmd(), groupPlayback),
			withGroup(bgm.NowCmd(), groupPlayback),

			// Song Library
			withGroup(songs.Cmd(), groupLibrary),
			withGroup(songs.FavCmd(), groupLibrary),
		},
	}.Run()
}

func appVersion() string {
	bi, hasBuilInfo := debug.ReadBuildInfo()
	if !hasBuilInfo {
		return "unknown-(no build info)"
	}

	versionString := bi.Main.Version
	if versionString == "" {
		versionString = "unknown-(no version)"
	}

	return versionString
}
