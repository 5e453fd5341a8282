package auth

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/Iron-Ham/gentle/internal/errors"
)

// sessionFileMode keeps the token readable by the owner only.
const sessionFileMode os.FileMode = 0o600

// FileStore persists a session as JSON.
type FileStore struct {
	fs   afero.Fs
	path string
	now  func() time.Time
}

// NewFileStore creates a store for the session file at path on fs.
func NewFileStore(fs afero.Fs, path string) *FileStore {
	return &FileStore{fs: fs, path: path, now: time.Now}
}

// Path returns the session file path.
func (s *FileStore) Path() string { return s.path }

// Fs returns the filesystem the store writes to.
func (s *FileStore) Fs() afero.Fs { return s.fs }

// Load reads the stored session. A missing or expired session reads as nil.
func (s *FileStore) Load() (*Session, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read session")
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, errors.Wrap(err, "parse session")
	}
	if session.AccessToken == "" || session.Expired(s.now()) {
		return nil, nil
	}
	return &session, nil
}

// Save writes session, creating the parent directory when needed.
func (s *FileStore) Save(session *Session) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create session dir")
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode session")
	}
	if err := afero.WriteFile(s.fs, s.path, data, sessionFileMode); err != nil {
		return errors.Wrap(err, "write session")
	}
	// WriteFile keeps the mode of an existing file.
	if err := s.fs.Chmod(s.path, sessionFileMode); err != nil {
		return errors.Wrap(err, "chmod session")
	}
	return nil
}

// Clear removes the stored session. Clearing a missing session is not an
// error.
func (s *FileStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove session")
	}
	return nil
}
