package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
	"github.com/dsnpru/activityreg/internal/service"
)

// PublicHandler holds the handlers students interact with.
type PublicHandler struct {
	registrations *service.RegistrationService
	activities    *service.ActivityService
	students      *service.StudentService
}

// NewPublicHandler constructs a PublicHandler.
func NewPublicHandler(
	registrations *service.RegistrationService,
	activities *service.ActivityService,
	students *service.StudentService,
) *PublicHandler {
	return &PublicHandler{registrations: registrations, activities: activities, students: students}
}

// ListActivities handles GET /api/activities
// Returns all publicly visible activities with seat counts.
func (h *PublicHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.ListActivities(r.Context(), true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

// SearchStudents handles GET /api/search_students?q=
func (h *PublicHandler) SearchStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to search students")
		return
	}
	writeJSON(w, http.StatusOK, students)
}

// Register handles POST /api/register
// Runs the registration decision engine. Rejections come back as a normal
// 200 result with success=false; only hard failures use error statuses.
func (h *PublicHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.ActivityID == "" {
		writeError(w, http.StatusBadRequest, "activity_id is required")
		return
	}

	result, err := h.registrations.Register(r.Context(), req, r.RemoteAddr)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "ไม่พบกิจกรรมที่เลือก")
			return
		}
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	result.Message = registrationMessage(result)
	writeJSON(w, http.StatusOK, result)
}

// registrationMessage renders the Thai user-facing text for a result. The
// engine itself only produces codes and structured rejection data.
func registrationMessage(res *model.RegisterResult) string {
	if res.Success {
		return "ลงทะเบียนสำเร็จ!"
	}
	rej := res.Rejection
	switch res.Code {
	case model.CodeStudentNotFound:
		return "ไม่พบข้อมูลนักเรียนในระบบ กรุณาติดต่อผู้ดูแลระบบ"
	case model.CodeAlreadyRegistered:
		return "คุณได้ลงทะเบียนกิจกรรมนี้แล้ว"
	case model.CodeClassroomNotAllowed:
		rooms := strings.Join(rej.AllowedClassrooms, ", ")
		if rej.GroupName != "" {
			return fmt.Sprintf("กลุ่ม '%s' เปิดรับเฉพาะห้อง %s", rej.GroupName, rooms)
		}
		return fmt.Sprintf("กิจกรรมนี้เปิดรับเฉพาะห้อง %s", rooms)
	case model.CodeNotYetOpen:
		return "กิจกรรมนี้ยังไม่เปิดรับลงทะเบียน"
	case model.CodeWindowClosed:
		return "กิจกรรมนี้หมดเวลาลงทะเบียนแล้ว"
	case model.CodeGroupQuotaExceeded:
		if rej.GroupName != "" {
			return fmt.Sprintf("คุณลงทะเบียนในกลุ่ม '%s' ครบ %d กิจกรรมแล้ว", rej.GroupName, rej.Quota)
		}
		return "คุณลงทะเบียนในกลุ่มนี้ครบตามจำนวนที่กำหนดแล้ว"
	case model.CodeUngroupedQuotaExceeded:
		return fmt.Sprintf("คุณลงทะเบียนครบ %d กิจกรรมทั่วไปแล้ว ไม่สามารถลงเพิ่มได้", model.UngroupedQuota)
	case model.CodeActivityClosed:
		return "กิจกรรมนี้ปิดรับสมัครแล้ว"
	case model.CodeActivityFull:
		return "กิจกรรมนี้เต็มแล้ว"
	}
	return "ไม่สามารถลงทะเบียนได้"
}

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
