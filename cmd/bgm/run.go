// Package bgm holds the orchestrion daemon and the commands that talk to it.
package bgm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/bgm/player"
	"github.com/gigurra/orchestrion/cmd/bgm/procmem"
	"github.com/gigurra/orchestrion/cmd/common"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/inbox"
	"github.com/gigurra/orchestrion/cmd/common/songlist"
	"github.com/spf13/cobra"
)

type RunParams struct {
	Verbose bool `short:"v" help:"Enable debug logging"`
	DryRun  bool `long:"dry-run" help:"Run against a simulated control block array instead of the game"`
}

func RunCmd() *cobra.Command {
	return boa.CmdT[RunParams]{
		Use:   "run",
		Short: "Run the BGM daemon",
		Long: `Attach to the game, announce song changes and serve play, stop and shuffle requests.

If the game or its BGM structures cannot be found the daemon keeps running in
disabled mode: requests are rejected and nothing is announced.

Config changes are picked up while running, except poll_interval_ms and
shuffle_interval_minutes which take effect after a restart.`,
		ParamEnrich: common.DefaultParamEnricher(),
		RunFunc: func(params *RunParams, cmd *cobra.Command, args []string) {
			if err := runDaemon(params); err != nil {
				fmt.Fprintf(os.Stderr, "run: %v\n", err)
				os.Exit(1)
			}
		},
	}.ToCobra()
}

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func runDaemon(params *RunParams) error {
	setupLogging(params.Verbose)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	songs := loadSongs(cfg)

	engine, closeFn := startEngine(cfg, params.DryRun)
	defer closeFn()

	ctl := player.NewController(engine, songs, cfg)
	announcer := player.NewAnnouncer(songs, os.Stdout, cfg)
	if engine != nil {
		engine.OnSongChanged(announcer.SongChanged)
	}

	configWatcher, err := config.NewWatcher(func(c *config.Config) {
		ctl.Apply(c)
		announcer.Apply(c)
		if intervalsChanged(cfg, c) {
			slog.Warn("Interval changes take effect after restart",
				"poll_interval", c.PollInterval(), "shuffle_interval", c.ShuffleInterval())
		}
	})
	if err != nil {
		slog.Warn("Config reload disabled", "error", err)
	} else {
		configWatcher.StartAsync()
		defer configWatcher.Stop()
	}

	inboxWatcher, err := inbox.NewWatcher(ctl.HandleMessage)
	if err != nil {
		return fmt.Errorf("failed to watch inbox: %w", err)
	}
	inboxWatcher.StartAsync()
	defer inboxWatcher.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if engine == nil {
		<-ctx.Done()
		return nil
	}

	slog.Info("Daemon started", "poll_interval", cfg.PollInterval(), "shuffle_interval", cfg.ShuffleInterval())
	engine.Run(ctx)
	slog.Info("Daemon stopped")
	return nil
}

// intervalsChanged reports whether a reload touched settings the running
// engine was started with.
func intervalsChanged(running, reloaded *config.Config) bool {
	return running.PollInterval() != reloaded.PollInterval() ||
		running.ShuffleInterval() != reloaded.ShuffleInterval()
}

func loadSongs(cfg *config.Config) *songlist.List {
	songs, err := songlist.Load(cfg.SongList)
	if err != nil {
		if !errors.Is(err, songlist.ErrNoSongList) {
			slog.Warn("Failed to load song list", "path", cfg.SongList, "error", err)
		}
		return nil
	}
	slog.Debug("Loaded song list", "path", cfg.SongList, "songs", songs.Len())
	return songs
}

// startEngine builds the engine, or returns nil when the game cannot be
// located. Setup failures are reported once and never retried.
func startEngine(cfg *config.Config, dryRun bool) (*control.Engine, func()) {
	engineCfg := control.Config{
		PollInterval:    cfg.PollInterval(),
		ShuffleInterval: cfg.ShuffleInterval(),
	}

	if dryRun {
		mem, resolver := player.Simulated()
		slog.Info("Dry run, using simulated control blocks", "array", player.SimulatedArray)
		return control.New(mem, resolver, engineCfg), func() {}
	}

	pc := cfg.Process
	proc, resolver, err := procmem.Locate(procmem.Target{
		ProcessName:   pc.Name,
		ModuleName:    pc.Module,
		RootOffset:    uint64(pc.RootOffset),
		ControlOffset: uint64(pc.ControlOffset),
	})
	if err != nil {
		slog.Error("BGM control disabled", "process", pc.Name, "error", err)
		return nil, func() {}
	}
	slog.Info("Attached to game", "pid", proc.Pid(), "root", resolver.Root())

	if chain := pc.AudioChain; chain != nil && chain.Offset != 0 {
		if base, err := proc.ModuleBase(pc.Module); err == nil {
			engineCfg.Probe = player.NewChainProbe(proc, base, uint64(chain.Offset), chain.PointerOffsets())
		} else {
			slog.Warn("Audio probe disabled", "error", err)
		}
	}

	return control.New(proc, resolver, engineCfg), func() {
		if err := proc.Close(); err != nil {
			slog.Debug("Failed to close process", "error", err)
		}
	}
}
