// Package jobs tracks long-running, write-exclusive work such as index
// builds, so readers can tell whether the thing they want to query is ready.
package jobs

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
	StatusError    Status = "error"
)

type Job struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`

	Rows     int `json:"rows"`
	Skipped  int `json:"skipped"`
	Inserted int `json:"inserted"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Manager keeps jobs in memory, indexed by ID and by name. A name always
// refers to the most recently created job with that name.
type Manager struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	byName map[string]string
}

func NewManager() *Manager {
	return &Manager{
		jobs:   make(map[string]*Job),
		byName: make(map[string]string),
	}
}

// Create allocates a pending job and returns a copy of it.
func (m *Manager) Create(name string) Job {
	j := &Job{
		ID:     uuid.NewString(),
		Name:   name,
		Status: StatusPending,
	}

	m.mu.Lock()
	m.jobs[j.ID] = j
	m.byName[name] = j.ID
	m.mu.Unlock()

	return *j
}

// Update atomically updates a job, if it exists.
func (m *Manager) Update(id string, fn func(*Job)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[id]; ok {
		fn(job)
	}
}

// Start marks a job running.
func (m *Manager) Start(id string) {
	m.Update(id, func(j *Job) {
		j.Status = StatusRunning
		j.StartedAt = time.Now()
	})
}

// Finish marks a job finished, or failed when err is non-nil.
func (m *Manager) Finish(id string, err error) {
	m.Update(id, func(j *Job) {
		j.FinishedAt = time.Now()
		if err != nil {
			j.Status = StatusError
			j.Error = err.Error()
			return
		}
		j.Status = StatusFinished
	})
}

// Get returns a snapshot of a job by ID.
func (m *Manager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Latest returns a snapshot of the newest job created under name.
func (m *Manager) Latest(name string) (Job, bool) {
	m.mu.RLock()
	id, ok := m.byName[name]
	m.mu.RUnlock()
	if !ok {
		return Job{}, false
	}
	return m.Get(id)
}

// Ready reports whether the newest job under name has finished successfully.
func (m *Manager) Ready(name string) bool {
	j, ok := m.Latest(name)
	return ok && j.Status == StatusFinished
}
