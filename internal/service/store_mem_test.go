package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

// memStore is an in-memory Store used by the engine tests. Allocate enforces
// the same invariants as the SQL transaction, under a mutex, so the
// concurrency properties can be exercised without a database.
type memStore struct {
	mu         sync.Mutex
	students   map[string]*model.Student
	activities map[string]*model.Activity
	groups     map[string]*model.ActivityGroup
	regs       []regPair
	nextID     int
}

type regPair struct {
	studentID  string
	activityID string
}

func newMemStore() *memStore {
	return &memStore{
		students:   make(map[string]*model.Student),
		activities: make(map[string]*model.Activity),
		groups:     make(map[string]*model.ActivityGroup),
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func (m *memStore) addStudent(name, classroom, number string) *model.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := &model.Student{ID: m.id("stu"), Name: name, Classroom: classroom, Number: number}
	m.students[s.ID] = s
	return s
}

func (m *memStore) addActivity(a model.Activity) *model.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.ID == "" {
		a.ID = m.id("act")
	}
	if a.Status == "" {
		a.Status = model.StatusOpen
	}
	m.activities[a.ID] = &a
	return &a
}

func (m *memStore) addGroup(g model.ActivityGroup) *model.ActivityGroup {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g.ID == "" {
		g.ID = m.id("grp")
	}
	m.groups[g.ID] = &g
	return &g
}

func (m *memStore) addRegistration(studentID, activityID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs = append(m.regs, regPair{studentID, activityID})
}

func (m *memStore) registrationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.regs)
}

func (m *memStore) FindStudent(_ context.Context, number, name string) (*model.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if number != "" {
		for _, s := range m.students {
			if s.Number == number {
				return s, nil
			}
		}
		return nil, repository.ErrStudentNotFound
	}
	if name != "" {
		for _, s := range m.students {
			if s.Name == name {
				return s, nil
			}
		}
	}
	return nil, repository.ErrStudentNotFound
}

func (m *memStore) GetActivity(_ context.Context, id string) (*model.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.activities[id]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) GetGroup(_ context.Context, id string) (*model.ActivityGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.groups[id]; ok {
		copied := *g
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *memStore) CountRegistrations(_ context.Context, activityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countByActivity(activityID), nil
}

func (m *memStore) CountInGroup(_ context.Context, studentID, groupID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countInGroup(studentID, groupID), nil
}

func (m *memStore) CountUngrouped(_ context.Context, studentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countUngrouped(studentID), nil
}

func (m *memStore) ExistsRegistration(_ context.Context, studentID, activityID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exists(studentID, activityID), nil
}

// Allocate mirrors the SQL allocation transaction: every raceable check is
// re-run under the lock before the insert.
func (m *memStore) Allocate(_ context.Context, studentID, activityID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.activities[activityID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if a.Status != model.StatusOpen {
		return 0, repository.ErrActivityClosed
	}
	if m.exists(studentID, activityID) {
		return 0, repository.ErrAlreadyRegistered
	}
	registered := m.countByActivity(activityID)
	if registered >= a.MaxPeople {
		return 0, repository.ErrActivityFull
	}
	if a.GroupID != nil {
		if g, ok := m.groups[*a.GroupID]; ok {
			if m.countInGroup(studentID, g.ID) >= g.Quota {
				return 0, repository.ErrGroupQuotaExceeded
			}
		}
	} else if m.countUngrouped(studentID) >= model.UngroupedQuota {
		return 0, repository.ErrUngroupedQuotaExceeded
	}

	m.regs = append(m.regs, regPair{studentID, activityID})
	remaining := a.MaxPeople - (registered + 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// Callers must hold mu.

func (m *memStore) exists(studentID, activityID string) bool {
	for _, r := range m.regs {
		if r.studentID == studentID && r.activityID == activityID {
			return true
		}
	}
	return false
}

func (m *memStore) countByActivity(activityID string) int {
	n := 0
	for _, r := range m.regs {
		if r.activityID == activityID {
			n++
		}
	}
	return n
}

func (m *memStore) countInGroup(studentID, groupID string) int {
	n := 0
	for _, r := range m.regs {
		if r.studentID != studentID {
			continue
		}
		a := m.activities[r.activityID]
		if a != nil && a.GroupID != nil && *a.GroupID == groupID {
			n++
		}
	}
	return n
}

func (m *memStore) countUngrouped(studentID string) int {
	n := 0
	for _, r := range m.regs {
		if r.studentID != studentID {
			continue
		}
		if a := m.activities[r.activityID]; a != nil && a.GroupID == nil {
			n++
		}
	}
	return n
}

func timePtr(t time.Time) *time.Time { return &t }
