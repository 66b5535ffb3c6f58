package eligibility

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/strata-labs/strata/internal/domain"
)

// FileRoster is a RosterProvider backed by a JSON file mapping society id to
// roster entries. The file is re-read on every call so roster edits take
// effect without a restart; a missing or unreadable file fails closed.
type FileRoster struct {
	path string
	now  func() time.Time
}

// NewFileRoster creates a roster provider reading from path.
func NewFileRoster(path string) *FileRoster {
	return &FileRoster{path: path, now: time.Now}
}

// ResidencyRoster returns a snapshot of the society's roster taken now.
func (f *FileRoster) ResidencyRoster(societyID string) (*domain.RosterSnapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: read roster file: %v", domain.ErrRosterUnavailable, err)
	}

	var societies map[string][]domain.RosterEntry
	if err := json.Unmarshal(data, &societies); err != nil {
		return nil, fmt.Errorf("%w: parse roster file: %v", domain.ErrRosterUnavailable, err)
	}

	entries, ok := societies[societyID]
	if !ok {
		return nil, fmt.Errorf("%w: society %s not in roster file", domain.ErrRosterUnavailable, societyID)
	}

	return &domain.RosterSnapshot{
		SocietyID: societyID,
		TakenAt:   f.now(),
		Entries:   entries,
	}, nil
}
