// Package store persists recorded workflows as JSON files on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/action"
)

// Workflow is a named, persisted sequence of task units.
type Workflow struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Units     []action.TaskUnit `json:"units"`
}

// Store reads and writes workflows under a single directory, one file per
// workflow named by its id.
type Store struct {
	mu  sync.Mutex
	dir string
	log *zap.Logger
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create workflow directory: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the storage directory.
func (s *Store) Dir() string {
	return s.dir
}

// Create persists a new workflow with a fresh id and returns it.
func (s *Store) Create(name string, units []action.TaskUnit) (*Workflow, error) {
	now := time.Now().UTC()
	wf := &Workflow{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Units:     units,
	}
	if err := s.write(wf); err != nil {
		return nil, err
	}
	s.log.Info("workflow saved",
		zap.String("id", wf.ID),
		zap.String("name", wf.Name),
		zap.Int("units", len(wf.Units)))
	return wf, nil
}

// Save overwrites an existing workflow, bumping its updated timestamp.
func (s *Store) Save(wf *Workflow) error {
	if wf.ID == "" {
		return fmt.Errorf("workflow has no id")
	}
	wf.UpdatedAt = time.Now().UTC()
	return s.write(wf)
}

// Load reads a workflow by id.
func (s *Store) Load(id string) (*Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
	}
	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow %s: %w", id, err)
	}
	return &wf, nil
}

// List returns all stored workflows, newest first.
func (s *Store) List() ([]*Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	var workflows []*Workflow
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable workflow file",
				zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		var wf Workflow
		if err := json.Unmarshal(data, &wf); err != nil {
			s.log.Warn("skipping malformed workflow file",
				zap.String("file", e.Name()), zap.Error(err))
			continue
		}
		workflows = append(workflows, &wf)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].CreatedAt.After(workflows[j].CreatedAt)
	})
	return workflows, nil
}

// Latest returns the most recently created workflow, or nil if none exist.
func (s *Store) Latest() (*Workflow, error) {
	workflows, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(workflows) == 0 {
		return nil, nil
	}
	return workflows[0], nil
}

// Delete removes a workflow by id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		return fmt.Errorf("failed to delete workflow %s: %w", id, err)
	}
	s.log.Info("workflow deleted", zap.String("id", id))
	return nil
}

func (s *Store) write(wf *Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize workflow: %w", err)
	}
	if err := os.WriteFile(s.path(wf.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write workflow: %w", err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
