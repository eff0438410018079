package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"promptboard/internal/board"
	"promptboard/internal/errors"
	"promptboard/internal/logger"
)

// The board snapshot and the credential live under two independent keys so
// that clearing one never affects the other.
const (
	boardFile      = "board.json"
	credentialFile = "credential"
)

// Store persists the board aggregate and the API credential as flat files
// under a data directory. Loads fail soft: absent or structurally
// incompatible data reads as absent, never as an error, and the caller
// substitutes defaults.
type Store struct {
	dir string
}

// DefaultDir returns the data directory, honoring PROMPTBOARD_DATA_DIR.
func DefaultDir() string {
	if dir := os.Getenv("PROMPTBOARD_DATA_DIR"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "promptboard")
}

// New creates a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Open creates a store at the default data directory.
func Open() *Store {
	return New(DefaultDir())
}

// Dir returns the store's data directory.
func (s *Store) Dir() string {
	return s.dir
}

// LoadBoard reads the persisted snapshot. ok is false when no snapshot
// exists or the stored value is malformed; the stored snapshot is otherwise
// trusted as-is.
func (s *Store) LoadBoard() (board.Board, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, boardFile))
	if err != nil {
		return board.Board{}, false
	}

	var cols []board.Column
	if err := json.Unmarshal(data, &cols); err != nil {
		logger.Storage("discarding malformed board snapshot: %v", err)
		return board.Board{}, false
	}

	b := board.Board{Columns: cols}
	if !b.Valid() {
		logger.Storage("discarding board snapshot with unexpected columns")
		return board.Board{}, false
	}
	return b, true
}

// SaveBoard overwrites the snapshot with the whole board. The persisted
// shape is the bare column array.
func (s *Store) SaveBoard(b board.Board) error {
	data, err := json.MarshalIndent(b.Columns, "", "  ")
	if err != nil {
		return errors.NewStorageError("encode", err)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.NewStorageError("save", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, boardFile), data, 0644); err != nil {
		return errors.NewStorageError("save", err)
	}
	return nil
}

// LoadCredential reads the stored API key. ok is false when none is stored.
func (s *Store) LoadCredential() (string, bool) {
	data, err := os.ReadFile(filepath.Join(s.dir, credentialFile))
	if err != nil {
		return "", false
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", false
	}
	return key, true
}

// SaveCredential stores the API key. The file is user-readable only.
func (s *Store) SaveCredential(value string) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.NewStorageError("save", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, credentialFile), []byte(strings.TrimSpace(value)+"\n"), 0600); err != nil {
		return errors.NewStorageError("save", err)
	}
	return nil
}

// Credential resolves the API key for a run: the OPENAI_API_KEY environment
// variable wins over the stored credential. Implements board.CredentialSource.
func (s *Store) Credential() (string, bool) {
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		return key, true
	}
	return s.LoadCredential()
}
