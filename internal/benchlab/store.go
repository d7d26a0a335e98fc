// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package benchlab

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store keeps runs as one JSON file each under a directory, named by date
// and run label so a directory listing reads as a timeline.
type Store struct {
	dir string
}

// NewStore opens the store directory, creating it when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("benchlab: create store %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName names a run file. Two runs of the same commit in the same
// second collide and the later write wins, which is the wanted behavior
// for a rerun.
func FileName(date time.Time, label string) string {
	return date.Format("2006-01-02T15-04-05") + "_" + label + ".json"
}

// Save writes the run and returns its file path.
func (s *Store) Save(run Run) (string, error) {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return "", fmt.Errorf("benchlab: marshal run: %w", err)
	}
	data = append(data, '\n')

	path := filepath.Join(s.dir, FileName(run.Date, run.Label()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("benchlab: write %s: %w", path, err)
	}
	return path, nil
}

// LoadFile reads one run file.
func (s *Store) LoadFile(path string) (Run, error) {
	f, err := os.Open(path)
	if err != nil {
		return Run{}, err
	}
	defer f.Close()

	var run Run
	if err := json.NewDecoder(f).Decode(&run); err != nil {
		return Run{}, fmt.Errorf("benchlab: decode %s: %w", path, err)
	}
	return run, nil
}

// LoadAll reads every run in the store, oldest first.
func (s *Store) LoadAll() ([]Run, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		run, err := s.LoadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Date.Before(runs[j].Date)
	})
	return runs, nil
}

// Latest returns the newest run, nil when the store is empty.
func (s *Store) Latest() (*Run, error) {
	runs, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[len(runs)-1], nil
}

// LastTwo returns the two newest runs for a before/after comparison.
func (s *Store) LastTwo() (prev, curr *Run, err error) {
	runs, err := s.LoadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(runs) < 2 {
		return nil, nil, fmt.Errorf("benchlab: need two stored runs, have %d", len(runs))
	}
	return &runs[len(runs)-2], &runs[len(runs)-1], nil
}
