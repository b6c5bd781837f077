// Package inbox provides a file-based message queue the CLI uses to hand
// commands to a running daemon. Messages are processed oldest first.
package inbox

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gigurra/orchestrion/cmd/common/config"
	"github.com/google/uuid"
)

// Message represents a message in the inbox.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Created time.Time       `json:"created"`
}

// Message types
const (
	TypePlay      = "play"
	TypeStop      = "stop"
	TypeShuffle   = "shuffle"
	TypeUnshuffle = "unshuffle"
	TypeDump      = "dump"
)

// PlayPayload selects a song at a priority. Priority nil means the
// configured target priority.
type PlayPayload struct {
	SongID   uint16 `json:"songId"`
	Priority *int   `json:"priority,omitempty"`
}

// StopPayload clears a priority slot. Priority nil means the configured
// target priority.
type StopPayload struct {
	Priority *int `json:"priority,omitempty"`
}

// ShufflePayload starts a shuffle session.
type ShufflePayload struct {
	FavoritesOnly bool `json:"favoritesOnly,omitempty"`
}

// Dir returns the inbox directory.
func Dir() string {
	return filepath.Join(config.ConfigDir(), "inbox")
}

// Ensure creates the inbox directory if it doesn't exist.
func Ensure() error {
	return os.MkdirAll(Dir(), 0755)
}

// Post sends a message to the inbox and returns its id.
func Post(msgType string, payload any) (string, error) {
	if err := Ensure(); err != nil {
		return "", err
	}

	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	now := time.Now()
	msg := Message{
		ID:      uuid.NewString(),
		Type:    msgType,
		Payload: payloadBytes,
		Created: now,
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	// Write then rename so the watcher never sees a partial file
	filename := fmt.Sprintf("%020d-%s.msg", now.UnixNano(), msg.ID)
	tmpPath := filepath.Join(Dir(), "."+filename+".tmp")
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, filepath.Join(Dir(), filename)); err != nil {
		os.Remove(tmpPath)
		return "", err
	}
	return msg.ID, nil
}

// Decode unmarshals a message payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", m.Type, err)
	}
	return nil
}

// ReadAll reads all messages in creation order. Messages are deleted after
// reading.
func ReadAll() ([]Message, error) {
	dir := Dir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var msgFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".msg" {
			msgFiles = append(msgFiles, entry.Name())
		}
	}
	sort.Strings(msgFiles) // zero-padded timestamp prefix

	var messages []Message
	for _, name := range msgFiles {
		msgPath := filepath.Join(dir, name)
		data, err := os.ReadFile(msgPath)
		if err != nil {
			continue
		}
		os.Remove(msgPath)

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Dropping invalid inbox message", "file", name, "error", err)
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// Watcher watches the inbox directory for new messages.
type Watcher struct {
	watcher *fsnotify.Watcher
	handler func(Message)
	done    chan struct{}
}

// NewWatcher creates a new inbox watcher.
func NewWatcher(handler func(Message)) (*Watcher, error) {
	if err := Ensure(); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(Dir()); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch inbox: %w", err)
	}

	return &Watcher{
		watcher: fsw,
		handler: handler,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching for messages. This blocks until Stop is called.
func (w *Watcher) Start() {
	// Messages posted while no daemon was running
	w.processAll()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".msg" {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.processAll()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("Inbox watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a background goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) processAll() {
	messages, err := ReadAll()
	if err != nil {
		slog.Warn("Failed to read inbox", "error", err)
		return
	}
	for _, msg := range messages {
		w.handler(msg)
	}
}
