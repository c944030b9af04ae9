package memory

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
)

// OutcomeStore persists the ordered outcome log. Save replaces the whole
// log; readers must never observe a partial write.
type OutcomeStore interface {
	Save(ctx context.Context, outcomes []core.StrategyOutcome) error
	Load(ctx context.Context) ([]core.StrategyOutcome, error)
	Close() error
}

// FileStore persists the log as a JSON file using atomic replace-on-write:
// the log is written to a temp file in the same directory, synced, then
// renamed over the target.
type FileStore struct {
	path   string
	logger *logging.Logger
}

// NewFileStore creates a file-backed outcome store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		logger: logging.GetLogger(),
	}
}

// Save implements OutcomeStore.
func (s *FileStore) Save(ctx context.Context, outcomes []core.StrategyOutcome) error {
	data, err := json.MarshalIndent(outcomes, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to encode outcome log")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to create store directory"),
			errors.Fields{"dir": dir},
		)
	}

	tmp, err := os.CreateTemp(dir, ".outcomes-*.json")
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.PersistenceFailed, "failed to write outcome log")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.PersistenceFailed, "failed to sync outcome log")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to replace outcome log"),
			errors.Fields{"path": s.path},
		)
	}
	return nil
}

// Load implements OutcomeStore. A missing or corrupt file yields an empty
// log with a warning rather than an error, so a damaged store never takes
// the engine down.
func (s *FileStore) Load(ctx context.Context) ([]core.StrategyOutcome, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.logger.Warn(ctx, "Failed to read outcome log, starting empty: %v", err)
		return nil, nil
	}

	var outcomes []core.StrategyOutcome
	if err := json.Unmarshal(data, &outcomes); err != nil {
		s.logger.Warn(ctx, "Corrupt outcome log at %s, starting empty: %v", s.path, err)
		return nil, nil
	}
	return outcomes, nil
}

// Close implements OutcomeStore.
func (s *FileStore) Close() error {
	return nil
}
