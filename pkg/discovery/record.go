package discovery

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
	"github.com/XiaoConstantine/adapt-go/pkg/errors"
	"github.com/XiaoConstantine/adapt-go/pkg/logging"
	"github.com/XiaoConstantine/adapt-go/pkg/transform"
)

// ScoreRange is the score band a discovered strategy targets.
type ScoreRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Application is one use of a discovered strategy, kept in the record's own
// ledger so discovery quality can be audited independently of the global
// outcome memory.
type Application struct {
	ImprovementPercent float64   `json:"improvement_percent"`
	Timestamp          time.Time `json:"timestamp"`
}

// DiscoveredStrategyRecord is a synthesized strategy plus its provenance and
// performance ledger.
type DiscoveredStrategyRecord struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	Spec        transform.Spec   `json:"spec"`

	CreatedAt           time.Time  `json:"created_at"`
	TargetComponents    []string   `json:"target_components,omitempty"`
	TargetRequirements  []string   `json:"target_requirements,omitempty"`
	TargetScoreRange    ScoreRange `json:"target_score_range"`
	TriggeredBy         []string   `json:"triggered_by"`
	ExpectedImprovement float64    `json:"expected_improvement"`

	// Performance ledger.
	Usage        int           `json:"usage"`
	Successes    int           `json:"successes"`
	Applications []Application `json:"applications"`
}

// SuccessRate is the fraction of applications that cleared the minimal
// improvement threshold.
func (r *DiscoveredStrategyRecord) SuccessRate() float64 {
	if r.Usage == 0 {
		return 0
	}
	return float64(r.Successes) / float64(r.Usage)
}

// AvgImprovement averages the ledger's improvements.
func (r *DiscoveredStrategyRecord) AvgImprovement() float64 {
	if len(r.Applications) == 0 {
		return 0
	}
	var sum float64
	for _, a := range r.Applications {
		sum += a.ImprovementPercent
	}
	return sum / float64(len(r.Applications))
}

// Definition materializes the record as a registrable strategy whose
// transform is the interpreted rule spec.
func (r *DiscoveredStrategyRecord) Definition() (core.StrategyDefinition, error) {
	category, err := core.ParseCategory(r.Category)
	if err != nil {
		return core.StrategyDefinition{}, err
	}
	return core.StrategyDefinition{
		Name:        r.Name,
		Description: r.Description,
		Category:    category,
		Transform:   r.Spec.Transform(),
		Discovered:  true,
	}, nil
}

// RecordStore persists discovered strategy records, independently of the
// outcome memory.
type RecordStore interface {
	Save(ctx context.Context, records []DiscoveredStrategyRecord) error
	Load(ctx context.Context) ([]DiscoveredStrategyRecord, error)
}

// FileRecordStore keeps records in a JSON file with the same atomic
// replace-on-write discipline as the outcome store.
type FileRecordStore struct {
	path   string
	logger *logging.Logger
}

// NewFileRecordStore creates a file-backed record store at path.
func NewFileRecordStore(path string) *FileRecordStore {
	return &FileRecordStore{
		path:   path,
		logger: logging.GetLogger(),
	}
}

// Save implements RecordStore.
func (s *FileRecordStore) Save(ctx context.Context, records []DiscoveredStrategyRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to encode discovery records")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to create store directory")
	}

	tmp, err := os.CreateTemp(dir, ".discovered-*.json")
	if err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to create temp file")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.PersistenceFailed, "failed to write discovery records")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, errors.PersistenceFailed, "failed to sync discovery records")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.PersistenceFailed, "failed to close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.PersistenceFailed, "failed to replace discovery records"),
			errors.Fields{"path": s.path},
		)
	}
	return nil
}

// Load implements RecordStore. Missing or corrupt files yield an empty set
// with a warning.
func (s *FileRecordStore) Load(ctx context.Context) ([]DiscoveredStrategyRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.logger.Warn(ctx, "Failed to read discovery records, starting empty: %v", err)
		return nil, nil
	}

	var records []DiscoveredStrategyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn(ctx, "Corrupt discovery records at %s, starting empty: %v", s.path, err)
		return nil, nil
	}
	return records, nil
}
