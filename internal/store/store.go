package store

import (
	"sync"

	"github.com/quantfolio/portfolio-analyzer/internal/analyzer"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/errors"
	"github.com/quantfolio/portfolio-analyzer/pkg/utils/logger"
)

// defaultMaxRuns bounds how much run history the store keeps.
const defaultMaxRuns = 100

// RunStore keeps completed analysis runs in memory for the API to serve.
// Oldest runs are evicted once the cap is reached. Safe for concurrent use.
type RunStore struct {
	mu      sync.RWMutex
	runs    map[string]*analyzer.Run
	order   []string
	maxRuns int
	log     *logger.Logger
}

// NewRunStore creates a store. maxRuns <= 0 selects the default cap.
func NewRunStore(maxRuns int) *RunStore {
	if maxRuns <= 0 {
		maxRuns = defaultMaxRuns
	}
	return &RunStore{
		runs:    make(map[string]*analyzer.Run),
		maxRuns: maxRuns,
		log:     logger.GetLogger("store.runs"),
	}
}

// Save stores a completed run, evicting the oldest when over the cap.
func (s *RunStore) Save(run *analyzer.Run) error {
	if run == nil || run.ID == "" {
		return errors.InvalidArgument("run must have an ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return errors.Newf("run %s already stored", run.ID)
	}

	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)

	for len(s.order) > s.maxRuns {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, evicted)
		s.log.Debugf("Evicted run %s", evicted)
	}
	return nil
}

// Get returns the run with the given ID.
func (s *RunStore) Get(id string) (*analyzer.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, errors.NotFound("run " + id + " not found")
	}
	return run, nil
}

// Latest returns the most recently saved run.
func (s *RunStore) Latest() (*analyzer.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.order) == 0 {
		return nil, errors.NotFound("no runs recorded yet")
	}
	return s.runs[s.order[len(s.order)-1]], nil
}

// List returns all stored runs, oldest first.
func (s *RunStore) List() []*analyzer.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*analyzer.Run, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.runs[id])
	}
	return out
}

// Len returns the number of stored runs.
func (s *RunStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
