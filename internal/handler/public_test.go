package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
	"github.com/dsnpru/activityreg/internal/service"
)

// stubStore serves a single student and a single activity, enough to drive
// the register endpoint through the engine.
type stubStore struct {
	student  model.Student
	activity model.Activity
	regs     int
}

func (s *stubStore) FindStudent(_ context.Context, number, name string) (*model.Student, error) {
	if number == s.student.Number || (number == "" && name == s.student.Name) {
		st := s.student
		return &st, nil
	}
	return nil, repository.ErrStudentNotFound
}

func (s *stubStore) GetActivity(_ context.Context, id string) (*model.Activity, error) {
	if id == s.activity.ID {
		a := s.activity
		return &a, nil
	}
	return nil, repository.ErrNotFound
}

func (s *stubStore) GetGroup(context.Context, string) (*model.ActivityGroup, error) {
	return nil, repository.ErrNotFound
}

func (s *stubStore) CountRegistrations(context.Context, string) (int, error) { return s.regs, nil }
func (s *stubStore) CountInGroup(context.Context, string, string) (int, error) {
	return 0, nil
}
func (s *stubStore) CountUngrouped(context.Context, string) (int, error) { return 0, nil }
func (s *stubStore) ExistsRegistration(context.Context, string, string) (bool, error) {
	return false, nil
}

func (s *stubStore) Allocate(context.Context, string, string) (int, error) {
	if s.regs >= s.activity.MaxPeople {
		return 0, repository.ErrActivityFull
	}
	s.regs++
	return s.activity.MaxPeople - s.regs, nil
}

func newTestHandler(store service.Store) *PublicHandler {
	return NewPublicHandler(service.NewRegistrationService(store, nil), nil, nil)
}

func postRegister(t *testing.T, h *PublicHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	return rec
}

func TestRegisterEndpointSuccess(t *testing.T) {
	store := &stubStore{
		student:  model.Student{ID: "s1", Name: "สมชาย ใจดี", Classroom: "ม.3/1", Number: "10001"},
		activity: model.Activity{ID: "a1", Title: "ดนตรี", MaxPeople: 2, Status: model.StatusOpen},
	}
	rec := postRegister(t, newTestHandler(store), `{"number":"10001","name":"","classroom":"ม.3/1","activity_id":"a1"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"success":true`)
	assert.Contains(t, body, `"message_code":"registered"`)
	assert.Contains(t, body, `"remaining_seats":1`)
	assert.Contains(t, body, "ลงทะเบียนสำเร็จ")
}

func TestRegisterEndpointFull(t *testing.T) {
	store := &stubStore{
		student:  model.Student{ID: "s1", Name: "สมชาย ใจดี", Number: "10001"},
		activity: model.Activity{ID: "a1", Title: "ดนตรี", MaxPeople: 1, Status: model.StatusOpen},
		regs:     1,
	}
	rec := postRegister(t, newTestHandler(store), `{"number":"10001","name":"","classroom":"","activity_id":"a1"}`)

	require.Equal(t, http.StatusOK, rec.Code, "rejections are normal results, not HTTP errors")
	body := rec.Body.String()
	assert.Contains(t, body, `"success":false`)
	assert.Contains(t, body, `"message_code":"activity_full"`)
	assert.Contains(t, body, `"remaining_seats":0`)
}

func TestRegisterEndpointUnknownActivity(t *testing.T) {
	store := &stubStore{
		student: model.Student{ID: "s1", Name: "สมชาย ใจดี", Number: "10001"},
	}
	rec := postRegister(t, newTestHandler(store), `{"number":"10001","name":"","classroom":"","activity_id":"missing"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterEndpointBadBody(t *testing.T) {
	rec := postRegister(t, newTestHandler(&stubStore{}), `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterEndpointMissingActivityID(t *testing.T) {
	rec := postRegister(t, newTestHandler(&stubStore{}), `{"number":"10001","name":"","classroom":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegistrationMessages(t *testing.T) {
	tests := []struct {
		name   string
		result model.RegisterResult
		want   string
	}{
		{
			"success",
			model.RegisterResult{Success: true, Code: model.CodeRegistered},
			"ลงทะเบียนสำเร็จ!",
		},
		{
			"student_not_found",
			model.RegisterResult{Code: model.CodeStudentNotFound, Rejection: &model.Rejection{Code: model.CodeStudentNotFound}},
			"ไม่พบข้อมูลนักเรียนในระบบ กรุณาติดต่อผู้ดูแลระบบ",
		},
		{
			"group_quota",
			model.RegisterResult{Code: model.CodeGroupQuotaExceeded, Rejection: &model.Rejection{Code: model.CodeGroupQuotaExceeded, GroupName: "กีฬา", Quota: 2}},
			"คุณลงทะเบียนในกลุ่ม 'กีฬา' ครบ 2 กิจกรรมแล้ว",
		},
		{
			"classroom",
			model.RegisterResult{Code: model.CodeClassroomNotAllowed, Rejection: &model.Rejection{Code: model.CodeClassroomNotAllowed, AllowedClassrooms: []string{"ม.3/1"}}},
			"กิจกรรมนี้เปิดรับเฉพาะห้อง ม.3/1",
		},
		{
			"full",
			model.RegisterResult{Code: model.CodeActivityFull, Rejection: &model.Rejection{Code: model.CodeActivityFull}},
			"กิจกรรมนี้เต็มแล้ว",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, registrationMessage(&tt.result))
		})
	}
}
