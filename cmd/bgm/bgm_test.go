package bgm

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/bgm/player"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/gigurra/orchestrion/cmd/common/inbox"
)

func TestRunPlay(t *testing.T) {
	t.Setenv("ORCHESTRION_HOME", t.TempDir())

	if err := runPlay(&PlayParams{SongID: 65}, false); err != nil {
		t.Fatalf("runPlay failed: %v", err)
	}
	if err := runPlay(&PlayParams{SongID: 7, Priority: 3}, true); err != nil {
		t.Fatalf("runPlay failed: %v", err)
	}

	messages, err := inbox.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}

	var first, second inbox.PlayPayload
	if err := messages[0].Decode(&first); err != nil {
		t.Fatal(err)
	}
	if err := messages[1].Decode(&second); err != nil {
		t.Fatal(err)
	}
	if first.SongID != 65 || first.Priority != nil {
		t.Errorf("first = %+v, want song 65 at default priority", first)
	}
	if second.SongID != 7 || second.Priority == nil || *second.Priority != 3 {
		t.Errorf("second = %+v, want song 7 at priority 3", second)
	}
}

func TestRunPlay_Invalid(t *testing.T) {
	t.Setenv("ORCHESTRION_HOME", t.TempDir())

	if err := runPlay(&PlayParams{SongID: 0}, false); err == nil {
		t.Error("expected error for song 0")
	}
	if err := runPlay(&PlayParams{SongID: 70000}, false); err == nil {
		t.Error("expected error for song id out of range")
	}
	for _, prio := range []int{-5, -1, 12} {
		if err := runPlay(&PlayParams{SongID: 7, Priority: prio}, true); !errors.Is(err, control.ErrPriorityOutOfRange) {
			t.Errorf("priority %d: error = %v, want ErrPriorityOutOfRange", prio, err)
		}
	}

	messages, _ := inbox.ReadAll()
	if len(messages) != 0 {
		t.Errorf("invalid requests should not be posted, got %d", len(messages))
	}
}

func TestRunStop(t *testing.T) {
	t.Setenv("ORCHESTRION_HOME", t.TempDir())

	for _, prio := range []int{12, -5} {
		if err := runStop(&StopParams{Priority: prio}, true); !errors.Is(err, control.ErrPriorityOutOfRange) {
			t.Errorf("priority %d: error = %v, want ErrPriorityOutOfRange", prio, err)
		}
	}
	if messages, _ := inbox.ReadAll(); len(messages) != 0 {
		t.Fatalf("rejected stops should not be posted, got %d", len(messages))
	}

	if err := runStop(&StopParams{}, false); err != nil {
		t.Fatal(err)
	}
	if err := runStop(&StopParams{Priority: 0}, true); err != nil {
		t.Fatal(err)
	}

	messages, err := inbox.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	var first, second inbox.StopPayload
	if err := messages[0].Decode(&first); err != nil {
		t.Fatal(err)
	}
	if err := messages[1].Decode(&second); err != nil {
		t.Fatal(err)
	}
	if first.Priority != nil {
		t.Errorf("stop without -p should use the target priority, got %d", *first.Priority)
	}
	if second.Priority == nil || *second.Priority != 0 {
		t.Errorf("stop -p 0 = %+v, want explicit priority 0", second)
	}
}

func TestRunNow(t *testing.T) {
	t.Setenv("ORCHESTRION_HOME", t.TempDir())

	if _, err := runNow(&NowParams{}); err == nil {
		t.Error("expected error without state")
	}

	if err := player.SaveState(player.State{SongID: 0, Updated: time.Now()}); err != nil {
		t.Fatal(err)
	}
	line, err := runNow(&NowParams{})
	if err != nil || line != "Nothing is playing." {
		t.Errorf("runNow = (%q, %v)", line, err)
	}

	if err := player.SaveState(player.State{SongID: 65, Title: "Torn from the Heavens", Updated: time.Now()}); err != nil {
		t.Fatal(err)
	}

	orig := clipboardWriteAll
	defer func() { clipboardWriteAll = orig }()
	var copied string
	clipboardWriteAll = func(s string) error {
		copied = s
		return nil
	}

	line, err = runNow(&NowParams{Clip: true})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(line, "Now playing ") || !strings.Contains(line, "Torn from the Heavens") {
		t.Errorf("line = %q", line)
	}
	if copied != "Torn from the Heavens" {
		t.Errorf("copied = %q", copied)
	}

	if err := player.SaveState(player.State{SongID: 4242, Updated: time.Now()}); err != nil {
		t.Fatal(err)
	}
	line, _ = runNow(&NowParams{})
	if !strings.Contains(line, "song 4242") {
		t.Errorf("line = %q", line)
	}
}

func TestAwaitDump(t *testing.T) {
	t.Setenv("ORCHESTRION_HOME", t.TempDir())

	if _, err := awaitDump("missing", 100*time.Millisecond); err == nil {
		t.Error("expected timeout")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		player.SaveDump(player.DumpFile{RequestID: "req-1", Taken: time.Now()})
	}()
	d, err := awaitDump("req-1", 2*time.Second)
	if err != nil {
		t.Fatalf("awaitDump failed: %v", err)
	}
	if d.RequestID != "req-1" {
		t.Errorf("RequestID = %q", d.RequestID)
	}
}

func TestStartEngine_DryRun(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.PollIntervalMs = 10

	engine, closeFn := startEngine(cfg, true)
	defer closeFn()
	if engine == nil {
		t.Fatal("dry run should always produce an engine")
	}

	if err := engine.SetSong(65, 1); err != nil {
		t.Fatal(err)
	}
	engine.Poll()
	if got := engine.CurrentSong(); got != 65 {
		t.Errorf("CurrentSong = %d, want 65", got)
	}
}

func TestStartEngine_NoRootOffset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Process.RootOffset = 0

	engine, closeFn := startEngine(cfg, false)
	defer closeFn()
	if engine != nil {
		t.Error("engine should be nil when setup fails")
	}
}

func TestLoadSongs_NotConfigured(t *testing.T) {
	if songs := loadSongs(config.DefaultConfig()); songs != nil {
		t.Errorf("expected nil song list, got %d songs", songs.Len())
	}
}

func TestIntervalsChanged(t *testing.T) {
	running := config.DefaultConfig()

	same := config.DefaultConfig()
	same.Favorites = []int{65}
	if intervalsChanged(running, same) {
		t.Error("favorites change should not count as an interval change")
	}

	poll := config.DefaultConfig()
	poll.PollIntervalMs = running.PollIntervalMs * 2
	if !intervalsChanged(running, poll) {
		t.Error("poll interval change not detected")
	}

	shuffle := config.DefaultConfig()
	shuffle.ShuffleMinutes = running.ShuffleMinutes + 1
	if !intervalsChanged(running, shuffle) {
		t.Error("shuffle interval change not detected")
	}
}
