package runs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/lawnmower/logger"
	"github.com/wricardo/lawnmower/mower/service"
)

var (
	ErrRunNotFound      = service.ErrRunNotFound
	ErrRunAlreadyExists = errors.New("run already exists")
	ErrInvalidRunID     = errors.New("invalid run ID")
)

// Manager keeps runs in memory with optional write-through persistence.
// Every run handed out is a copy; changes go through Update.
type Manager struct {
	runs        map[string]*service.Run
	persistence RunPersistence
	mu          sync.RWMutex
}

// NewManager creates a new in-memory run manager
func NewManager() *Manager {
	return &Manager{
		runs: make(map[string]*service.Run),
	}
}

// NewManagerWithPersistence creates a new run manager with persistence
func NewManagerWithPersistence(persistence RunPersistence) *Manager {
	return &Manager{
		runs:        make(map[string]*service.Run),
		persistence: persistence,
	}
}

// Create stores a new run. An empty ID is replaced with a UUID.
func (m *Manager) Create(run *service.Run) (*service.Run, error) {
	if run == nil {
		return nil, fmt.Errorf("run cannot be nil")
	}

	stored := run.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	} else if !validID(stored.ID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunID, stored.ID)
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.LastAccessedAt.IsZero() {
		stored.LastAccessedAt = stored.CreatedAt
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[stored.ID]; exists {
		return nil, ErrRunAlreadyExists
	}
	m.runs[stored.ID] = stored
	m.persist(stored)

	return stored.Clone(), nil
}

// Get retrieves a run by ID, loading it from persistence if needed
func (m *Manager) Get(id string) (*service.Run, error) {
	m.mu.RLock()
	run, exists := m.runs[id]
	if exists {
		run = run.Clone()
	}
	m.mu.RUnlock()
	if exists {
		return run, nil
	}

	run, err := m.loadIntoMemory(id)
	if err != nil {
		return nil, err
	}
	return run.Clone(), nil
}

// loadIntoMemory pulls a persisted run into the cache. Callers must not hold mu.
func (m *Manager) loadIntoMemory(id string) (*service.Run, error) {
	if m.persistence == nil || !m.persistence.Exists(id) {
		return nil, ErrRunNotFound
	}

	loaded, err := m.persistence.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load persisted run: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.runs[id]; ok {
		return existing, nil
	}
	m.runs[id] = loaded
	return loaded, nil
}

// List returns copies of all runs in memory
func (m *Manager) List() []*service.Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		result = append(result, run.Clone())
	}
	return result
}

// Update applies fn to the stored run under the manager lock and persists it
func (m *Manager) Update(id string, fn func(*service.Run)) (*service.Run, error) {
	m.mu.RLock()
	_, exists := m.runs[id]
	m.mu.RUnlock()
	if !exists {
		if _, err := m.loadIntoMemory(id); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[id]
	if !exists {
		return nil, ErrRunNotFound
	}
	fn(run)
	run.ID = id
	m.persist(run)

	return run.Clone(), nil
}

// Touch marks a run as accessed now. The timestamp only drives in-memory
// expiry, so it is not written to persistence; the next Update or
// SaveAllRuns carries it to disk.
func (m *Manager) Touch(id string) (*service.Run, error) {
	m.mu.RLock()
	_, exists := m.runs[id]
	m.mu.RUnlock()
	if !exists {
		if _, err := m.loadIntoMemory(id); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	run, exists := m.runs[id]
	if !exists {
		return nil, ErrRunNotFound
	}
	run.LastAccessedAt = time.Now()
	return run.Clone(), nil
}

// Delete removes a run from memory and persistence
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, inMemory := m.runs[id]
	delete(m.runs, id)

	if m.persistence != nil && m.persistence.Exists(id) {
		if err := m.persistence.Delete(id); err != nil {
			return fmt.Errorf("failed to delete persisted run: %w", err)
		}
		return nil
	}

	if !inMemory {
		return ErrRunNotFound
	}
	return nil
}

// DeleteFromMemory removes a run from memory only (not from persistence)
func (m *Manager) DeleteFromMemory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[id]; !exists {
		return ErrRunNotFound
	}
	delete(m.runs, id)
	return nil
}

// Save writes a specific run to persistence
func (m *Manager) Save(id string) error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	run, exists := m.runs[id]
	if !exists {
		return ErrRunNotFound
	}
	return m.persistence.Save(run)
}

// CleanupExpiredRuns drops finished runs that haven't been accessed within
// maxAge from memory. Persisted copies stay on disk.
func (m *Manager) CleanupExpiredRuns(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, run := range m.runs {
		if run.Status.Finished() && run.LastAccessedAt.Before(cutoff) {
			delete(m.runs, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of runs in memory
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.runs)
}

// LoadPersistedRuns loads all persisted runs into memory. Runs that were
// still pending or running when the process stopped are marked failed.
func (m *Manager) LoadPersistedRuns() error {
	if m.persistence == nil {
		return nil
	}

	ids, err := m.persistence.ListAll()
	if err != nil {
		return fmt.Errorf("failed to list persisted runs: %w", err)
	}

	log := logger.Component("runs")

	m.mu.Lock()
	defer m.mu.Unlock()

	loaded := 0
	for _, id := range ids {
		if _, exists := m.runs[id]; exists {
			continue
		}

		run, err := m.persistence.Load(id)
		if err != nil {
			log.WithError(err).WithField("run_id", id).Warn("failed to load persisted run")
			continue
		}

		if !run.Status.Finished() {
			run.Status = service.StatusFailed
			run.Error = "interrupted before completion"
			if run.FinishedAt.IsZero() {
				run.FinishedAt = time.Now()
			}
			m.persist(run)
		}

		m.runs[id] = run
		loaded++
	}

	if loaded > 0 {
		log.WithField("count", loaded).Info("loaded persisted runs")
	}
	return nil
}

// SaveAllRuns writes every in-memory run to persistence
func (m *Manager) SaveAllRuns() error {
	if m.persistence == nil {
		return nil
	}

	m.mu.RLock()
	runs := make([]*service.Run, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run.Clone())
	}
	m.mu.RUnlock()

	errorCount := 0
	for _, run := range runs {
		if err := m.persistence.Save(run); err != nil {
			logger.Component("runs").WithError(err).WithField("run_id", run.ID).Warn("failed to save run")
			errorCount++
		}
	}

	if errorCount > 0 {
		return fmt.Errorf("failed to save %d runs", errorCount)
	}
	return nil
}

// persist saves run if persistence is configured. Callers hold mu.
func (m *Manager) persist(run *service.Run) {
	if m.persistence == nil {
		return
	}
	if err := m.persistence.Save(run); err != nil {
		logger.Component("runs").WithError(err).WithField("run_id", run.ID).Warn("failed to persist run")
	}
}
