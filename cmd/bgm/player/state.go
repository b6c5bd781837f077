package player

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/gigurra/orchestrion/cmd/bgm/control"
	"github.com/gigurra/orchestrion/cmd/common/config"
)

// State is the daemon's view of what is playing, shared with the CLI.
type State struct {
	SongID  uint16    `json:"song_id"`
	Title   string    `json:"title,omitempty"`
	Updated time.Time `json:"updated"`
}

// DumpFile is a diagnostics snapshot written in answer to a dump request.
type DumpFile struct {
	RequestID   string              `json:"request_id"`
	Taken       time.Time           `json:"taken"`
	Error       string              `json:"error,omitempty"`
	Diagnostics control.Diagnostics `json:"diagnostics"`
}

// StatePath returns the path of the now-playing state file.
func StatePath() string {
	return filepath.Join(config.ConfigDir(), "state.json")
}

// DumpPath returns the path of the latest diagnostics snapshot.
func DumpPath() string {
	return filepath.Join(config.ConfigDir(), "dump.json")
}

// SaveState writes the now-playing state.
func SaveState(s State) error {
	return writeJSON(StatePath(), s)
}

// LoadState reads the now-playing state.
func LoadState() (State, error) {
	var s State
	data, err := os.ReadFile(StatePath())
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

// SaveDump writes a diagnostics snapshot.
func SaveDump(d DumpFile) error {
	return writeJSON(DumpPath(), d)
}

// LoadDump reads the latest diagnostics snapshot.
func LoadDump() (DumpFile, error) {
	var d DumpFile
	data, err := os.ReadFile(DumpPath())
	if err != nil {
		return d, err
	}
	err = json.Unmarshal(data, &d)
	return d, err
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
