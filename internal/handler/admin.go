package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dsnpru/activityreg/internal/excel"
	"github.com/dsnpru/activityreg/internal/model"
	"github.com/dsnpru/activityreg/internal/repository"
	"github.com/dsnpru/activityreg/internal/service"
)

// AdminHandler holds the back-office handlers.
type AdminHandler struct {
	admins        *service.AdminService
	activities    *service.ActivityService
	students      *service.StudentService
	registrations *repository.RegistrationRepository
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(
	admins *service.AdminService,
	activities *service.ActivityService,
	students *service.StudentService,
	registrations *repository.RegistrationRepository,
) *AdminHandler {
	return &AdminHandler{
		admins:        admins,
		activities:    activities,
		students:      students,
		registrations: registrations,
	}
}

// Login handles POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	token, err := h.admins.Login(r.Context(), req, r.RemoteAddr)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "ชื่อผู้ใช้หรือรหัสผ่านไม่ถูกต้อง")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	writeJSON(w, http.StatusOK, token)
}

// ─── Activities ──────────────────────────────────────────────────────────────

// CreateActivity handles POST /admin/activities
func (h *AdminHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var req model.CreateActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	activity, err := h.activities.CreateActivity(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.record(r, "create_activity", fmt.Sprintf("activity %q", activity.Title))
	writeJSON(w, http.StatusCreated, activity)
}

// ListActivities handles GET /admin/activities
// Unlike the public listing, hidden groups are included.
func (h *AdminHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.ListActivities(r.Context(), false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}
	if activities == nil {
		activities = []model.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

// UpdateActivity handles PUT /admin/activities/{id}
func (h *AdminHandler) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateActivityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	activity, err := h.activities.UpdateActivity(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.record(r, "update_activity", fmt.Sprintf("activity %q", activity.Title))
	writeJSON(w, http.StatusOK, activity)
}

// ToggleActivity handles POST /admin/activities/{id}/toggle
func (h *AdminHandler) ToggleActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.activities.ToggleActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to toggle activity")
		return
	}
	h.record(r, "toggle_activity", fmt.Sprintf("activity %q now %s", activity.Title, activity.Status))
	writeJSON(w, http.StatusOK, activity)
}

// DeleteActivity handles DELETE /admin/activities/{id}
func (h *AdminHandler) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.activities.DeleteActivity(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete activity")
		return
	}
	h.record(r, "delete_activity", "activity "+id)
	w.WriteHeader(http.StatusNoContent)
}

// ListRegistrations handles GET /admin/activities/{id}/registrations
func (h *AdminHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.activities.ListRegistrations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "activity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to list registrations")
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// DeleteRegistration handles DELETE /admin/registrations/{id}
func (h *AdminHandler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.activities.DeleteRegistration(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "registration not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete registration")
		return
	}
	h.record(r, "delete_registration", "registration "+id)
	w.WriteHeader(http.StatusNoContent)
}

// ─── Groups ──────────────────────────────────────────────────────────────────

// CreateGroup handles POST /admin/groups
func (h *AdminHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req model.CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	group, err := h.activities.CreateGroup(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.record(r, "create_group", fmt.Sprintf("group %q quota %d", group.Name, group.Quota))
	writeJSON(w, http.StatusCreated, group)
}

// ListGroups handles GET /admin/groups
func (h *AdminHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.activities.ListGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}
	if groups == nil {
		groups = []model.ActivityGroup{}
	}
	writeJSON(w, http.StatusOK, groups)
}

// UpdateGroup handles PUT /admin/groups/{id}
func (h *AdminHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req model.CreateGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	group, err := h.activities.UpdateGroup(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.record(r, "update_group", fmt.Sprintf("group %q", group.Name))
	writeJSON(w, http.StatusOK, group)
}

// DeleteGroup handles DELETE /admin/groups/{id}
func (h *AdminHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.activities.DeleteGroup(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete group")
		return
	}
	h.record(r, "delete_group", "group "+id)
	w.WriteHeader(http.StatusNoContent)
}

// ─── Students ────────────────────────────────────────────────────────────────

// ListStudents handles GET /admin/students
func (h *AdminHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.students.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list students")
		return
	}
	if students == nil {
		students = []model.Student{}
	}
	writeJSON(w, http.StatusOK, students)
}

// UpdateStudent handles PUT /admin/students/{id}
func (h *AdminHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateStudentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	student, err := h.students.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.record(r, "update_student", "student "+student.Number)
	writeJSON(w, http.StatusOK, student)
}

// DeleteStudent handles DELETE /admin/students/{id}
func (h *AdminHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.students.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete student")
		return
	}
	h.record(r, "delete_student", "student "+id)
	w.WriteHeader(http.StatusNoContent)
}

// ImportStudents handles POST /admin/import_students
// Accepts a multipart Excel upload and upserts the roster by student number.
func (h *AdminHandler) ImportStudents(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		writeError(w, http.StatusBadRequest, "กรุณาอัปโหลดไฟล์ Excel (.xlsx หรือ .xls)")
		return
	}

	rows, err := excel.ParseStudents(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ไม่สามารถอ่านไฟล์ Excel ได้: "+err.Error())
		return
	}
	imported, err := h.students.Import(r.Context(), rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "เกิดข้อผิดพลาดในการนำเข้าข้อมูล")
		return
	}

	h.record(r, "import_students", fmt.Sprintf("%d students from %s", imported, header.Filename))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("นำเข้าข้อมูลนักเรียนสำเร็จ %d คน", imported),
	})
}

// ─── Dashboard, audit log, export ────────────────────────────────────────────

// Dashboard handles GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admins.Dashboard(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// AuditLog handles GET /admin/logs?limit=
func (h *AdminHandler) AuditLog(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.admins.AuditLog(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list audit log")
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ExportRegistrations handles GET /admin/export/excel?activity_id=
func (h *AdminHandler) ExportRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.ListAll(r.Context(), r.URL.Query().Get("activity_id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load registrations")
		return
	}
	workbook, err := excel.BuildRegistrationsWorkbook(regs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build workbook")
		return
	}

	fileName := fmt.Sprintf("registrations_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName+`"`)
	if err := workbook.Write(w); err != nil {
		// Response is already streaming; nothing useful to send the client.
		log.Printf("write workbook: %v", err)
	}
}

// record writes an audit entry for the authenticated admin, best-effort.
func (h *AdminHandler) record(r *http.Request, action, details string) {
	admin := adminFrom(r)
	if admin == nil {
		return
	}
	h.admins.RecordAction(r.Context(), admin.Username, action, details, r.RemoteAddr)
}
