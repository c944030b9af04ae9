package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
)

// SQLiteStore implements OutcomeStore on SQLite. Unlike FileStore it appends
// rows instead of rewriting the full log; insertion order is preserved by
// rowid. Use ":memory:" for an in-process database.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex
	path string

	initialized sync.Once
}

// NewSQLiteStore creates a SQLite-backed outcome store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{
		db:   db,
		path: path,
	}
	if err := store.ensureInitialized(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// Enable WAL mode for better concurrency
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.PersistenceFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS strategy_outcomes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            outcome TEXT NOT NULL,
            recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );
        `

		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.Wrap(err, errors.PersistenceFailed, "failed to initialize database")
			return
		}
	})
	return initErr
}

// Save implements OutcomeStore. Only rows beyond what is already persisted
// are appended, inside a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, outcomes []core.StrategyOutcome) error {
	if err := s.ensureInitialized(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var persisted int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM strategy_outcomes").Scan(&persisted); err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to count persisted outcomes")
	}
	if persisted >= len(outcomes) {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logging.GetLogger().Error(ctx, "failed to rollback transaction: %v", err)
		}
	}()

	for _, outcome := range outcomes[persisted:] {
		data, err := json.Marshal(outcome)
		if err != nil {
			return errors.Wrap(err, errors.PersistenceFailed, "failed to encode outcome")
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO strategy_outcomes (outcome) VALUES (?)", string(data)); err != nil {
			return errors.Wrap(err, errors.PersistenceFailed, "failed to append outcome")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to commit outcomes")
	}
	return nil
}

// Load implements OutcomeStore, returning the full ordered history. Rows
// that fail to decode are skipped with a warning.
func (s *SQLiteStore) Load(ctx context.Context) ([]core.StrategyOutcome, error) {
	if err := s.ensureInitialized(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, "SELECT outcome FROM strategy_outcomes ORDER BY id")
	if err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to query outcomes")
	}
	defer rows.Close()

	var outcomes []core.StrategyOutcome
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Wrap(err, errors.PersistenceFailed, "failed to scan outcome row")
		}
		var outcome core.StrategyOutcome
		if err := json.Unmarshal([]byte(data), &outcome); err != nil {
			logging.GetLogger().Warn(ctx, "Skipping corrupt outcome row: %v", err)
			continue
		}
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.PersistenceFailed, "error iterating outcome rows")
	}

	return outcomes, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to close database connection")
	}
	return nil
}
