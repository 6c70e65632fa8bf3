// state/state.go
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// StateManagerInterface is what the rest of the bot sees of persisted
// state. The interface keeps callers independent of the file-backed
// implementation, which helps testing.
type StateManagerInterface interface {
	// TelegramOffset returns the inbound command cursor.
	TelegramOffset() int64
	// SetTelegramOffset persists a new cursor after a successful poll.
	SetTelegramOffset(offset int64) error
	// SettingsVersion returns the schema version recorded at last save.
	SettingsVersion() string
	// SetSettingsVersion persists the current schema version.
	SetSettingsVersion(version string) error
}

// AppState is the structure persisted to the state file.
type AppState struct {
	SettingsVersion string `json:"settings_version"`
	TelegramOffset  int64  `json:"telegram_offset"`
}

// StateManager is the file-backed implementation of StateManagerInterface.
type StateManager struct {
	mu       sync.Mutex
	filePath string
	state    AppState
}

// NewStateManager loads existing state from filePath, or starts fresh
// (and creates the file) when none exists.
func NewStateManager(filePath string) (*StateManager, error) {
	sm := &StateManager{filePath: filePath}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := sm.load(); err != nil {
		if os.IsNotExist(err) {
			if err := sm.save(); err != nil {
				return nil, fmt.Errorf("failed to create initial state file: %w", err)
			}
			return sm, nil
		}
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return sm, nil
}

// save writes the state atomically via a temp file rename.
func (sm *StateManager) save() error {
	data, err := json.MarshalIndent(sm.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	tmp := sm.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temporary state file: %w", err)
	}
	return os.Rename(tmp, sm.filePath)
}

func (sm *StateManager) load() error {
	data, err := os.ReadFile(sm.filePath)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &sm.state)
}

func (sm *StateManager) TelegramOffset() int64 {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state.TelegramOffset
}

func (sm *StateManager) SetTelegramOffset(offset int64) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state.TelegramOffset = offset
	return sm.save()
}

func (sm *StateManager) SettingsVersion() string {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.state.SettingsVersion
}

func (sm *StateManager) SetSettingsVersion(version string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.state.SettingsVersion = version
	return sm.save()
}
