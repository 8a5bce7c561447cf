package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
)

func register(t *testing.T, svc *RegistrationService, number, name string, activityID string) *model.RegisterResult {
	t.Helper()
	result, err := svc.Register(context.Background(), model.RegisterRequest{
		Number:     number,
		Name:       name,
		ActivityID: activityID,
	}, "127.0.0.1")
	require.NoError(t, err)
	return result
}

func TestRegisterHappyPath(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	store.addStudent("Student B", "ม.3/1", "B")
	store.addStudent("Student C", "ม.3/1", "C")
	activity := store.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: 2})
	svc := NewRegistrationService(store, nil)

	resA := register(t, svc, "A", "", activity.ID)
	assert.True(t, resA.Success)
	require.NotNil(t, resA.RemainingSeats)
	assert.Equal(t, 1, *resA.RemainingSeats)

	resB := register(t, svc, "B", "", activity.ID)
	assert.True(t, resB.Success)
	require.NotNil(t, resB.RemainingSeats)
	assert.Equal(t, 0, *resB.RemainingSeats)

	resC := register(t, svc, "C", "", activity.ID)
	assert.False(t, resC.Success)
	assert.Equal(t, model.CodeActivityFull, resC.Code)
	require.NotNil(t, resC.RemainingSeats)
	assert.Equal(t, 0, *resC.RemainingSeats)
}

func TestRegisterGroupQuotaScenario(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	group := store.addGroup(model.ActivityGroup{Name: "วิชาการ", Quota: 1})
	x := store.addActivity(model.Activity{Title: "X", MaxPeople: 10, GroupID: &group.ID})
	y := store.addActivity(model.Activity{Title: "Y", MaxPeople: 10, GroupID: &group.ID})
	svc := NewRegistrationService(store, nil)

	resX := register(t, svc, "A", "", x.ID)
	assert.True(t, resX.Success)

	resY := register(t, svc, "A", "", y.ID)
	assert.False(t, resY.Success)
	assert.Equal(t, model.CodeGroupQuotaExceeded, resY.Code)
	require.NotNil(t, resY.Rejection)
	assert.Equal(t, "วิชาการ", resY.Rejection.GroupName)
}

func TestRegisterWindowOpens(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	opens := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	closes := opens.Add(24 * time.Hour)
	activity := store.addActivity(model.Activity{
		Title:     "ค่ายวิทย์",
		MaxPeople: 10,
		StartTime: &opens,
		EndTime:   &closes,
	})
	svc := NewRegistrationService(store, nil)

	svc.now = func() time.Time { return opens.Add(-time.Hour) }
	res := register(t, svc, "A", "", activity.ID)
	assert.False(t, res.Success)
	assert.Equal(t, model.CodeNotYetOpen, res.Code)

	svc.now = func() time.Time { return opens.Add(time.Hour) }
	res = register(t, svc, "A", "", activity.ID)
	assert.True(t, res.Success)
}

func TestRegisterStudentNotFound(t *testing.T) {
	store := newMemStore()
	activity := store.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: 2})
	svc := NewRegistrationService(store, nil)

	res := register(t, svc, "9999", "", activity.ID)
	assert.False(t, res.Success)
	assert.Equal(t, model.CodeStudentNotFound, res.Code)
	assert.Nil(t, res.RemainingSeats)
}

// An unknown activity is a hard error, not a rejection: the id came from our
// own listing, so a miss means something is genuinely wrong.
func TestRegisterUnknownActivityIsHardError(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	svc := NewRegistrationService(store, nil)

	_, err := svc.Register(context.Background(), model.RegisterRequest{
		Number:     "A",
		ActivityID: "missing",
	}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// The student number wins over the name; the name only matters when no
// number was supplied.
func TestRegisterNumberPreferredOverName(t *testing.T) {
	store := newMemStore()
	a := store.addStudent("Shared Name", "ม.3/1", "A")
	store.addStudent("Shared Name", "ม.3/2", "B")
	activity := store.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: 10})
	svc := NewRegistrationService(store, nil)

	res := register(t, svc, "A", "Shared Name", activity.ID)
	require.True(t, res.Success)

	exists, err := store.ExistsRegistration(context.Background(), a.ID, activity.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRegisterConcurrentDuplicates(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	activity := store.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: 100})
	svc := NewRegistrationService(store, nil)

	const n = 16
	results := make([]*model.RegisterResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Register(context.Background(), model.RegisterRequest{
				Number:     "A",
				ActivityID: activity.ID,
			}, "")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	successes, duplicates := 0, 0
	for _, res := range results {
		if res.Success {
			successes++
		} else {
			assert.Equal(t, model.CodeAlreadyRegistered, res.Code)
			duplicates++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, duplicates)
	assert.Equal(t, 1, store.registrationCount())
}

func TestRegisterConcurrentCapacity(t *testing.T) {
	store := newMemStore()
	const capacity = 3
	const n = 10
	activity := store.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: capacity})
	numbers := make([]string, n)
	for i := range numbers {
		numbers[i] = store.addStudent("Student", "ม.3/1", store.id("num")).Number
	}
	svc := NewRegistrationService(store, nil)

	results := make([]*model.RegisterResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Register(context.Background(), model.RegisterRequest{
				Number:     numbers[i],
				ActivityID: activity.ID,
			}, "")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	successes, full := 0, 0
	for _, res := range results {
		if res.Success {
			successes++
		} else {
			assert.Equal(t, model.CodeActivityFull, res.Code)
			full++
		}
	}
	assert.Equal(t, capacity, successes)
	assert.Equal(t, n-capacity, full)
	assert.Equal(t, capacity, store.registrationCount())
}

// racingStore hides an existing registration from the evaluator so the
// duplicate only surfaces inside Allocate, as it would when two requests
// interleave between evaluation and allocation.
type racingStore struct {
	*memStore
}

func (r *racingStore) ExistsRegistration(context.Context, string, string) (bool, error) {
	return false, nil
}

func TestRegisterDowngradesAllocatorRace(t *testing.T) {
	mem := newMemStore()
	student := mem.addStudent("Student A", "ม.3/1", "A")
	activity := mem.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: 10})
	mem.addRegistration(student.ID, activity.ID)
	svc := NewRegistrationService(&racingStore{mem}, nil)

	res := register(t, svc, "A", "", activity.ID)
	assert.False(t, res.Success)
	assert.Equal(t, model.CodeAlreadyRegistered, res.Code)
	assert.Equal(t, 1, mem.registrationCount())
}

// failingSink always errors; registration must still succeed.
type failingSink struct{ calls int }

func (f *failingSink) Record(context.Context, string, string, string, string) error {
	f.calls++
	return errors.New("audit store down")
}

func TestRegisterIgnoresAuditFailure(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	activity := store.addActivity(model.Activity{Title: "ดนตรี", MaxPeople: 2})
	sink := &failingSink{}
	svc := NewRegistrationService(store, sink)

	res := register(t, svc, "A", "", activity.ID)
	assert.True(t, res.Success)
	assert.Equal(t, 1, sink.calls)
}

// No audit entry is attempted for a rejected attempt.
func TestRegisterRejectionSkipsAudit(t *testing.T) {
	store := newMemStore()
	store.addStudent("Student A", "ม.3/1", "A")
	activity := store.addActivity(model.Activity{Title: "ปิด", MaxPeople: 2, Status: model.StatusClosed})
	sink := &failingSink{}
	svc := NewRegistrationService(store, sink)

	res := register(t, svc, "A", "", activity.ID)
	assert.False(t, res.Success)
	assert.Equal(t, model.CodeActivityClosed, res.Code)
	assert.Zero(t, sink.calls)
}
