// Package excel reads the student import spreadsheet and builds the
// registration export workbook using excelize.
package excel

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/dsnpru/activityreg/internal/model"
)

// Import sheet columns: student code, name prefix, first name, last name,
// classroom. Row 1 is the header.
const importColumns = 5

// ParseStudents reads the import spreadsheet from r. The prefix, first and
// last name are combined into one display name the way the roster stores it.
func ParseStudents(r io.Reader) ([]model.Student, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	var students []model.Student
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		padded := make([]string, importColumns)
		copy(padded, row)
		code := strings.TrimSpace(padded[0])
		prefix := strings.TrimSpace(padded[1])
		firstName := strings.TrimSpace(padded[2])
		lastName := strings.TrimSpace(padded[3])
		classroom := strings.TrimSpace(padded[4])

		if code == "" || firstName == "" {
			continue
		}
		name := strings.TrimSpace(prefix + firstName + " " + lastName)
		students = append(students, model.Student{
			Name:      name,
			Classroom: classroom,
			Number:    code,
		})
	}
	return students, nil
}

// BuildRegistrationsWorkbook renders registrations as a workbook with one
// row per registration.
func BuildRegistrationsWorkbook(regs []model.Registration) (*excelize.File, error) {
	f := excelize.NewFile()
	sheetName := "Registrations"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"กิจกรรม", "ชื่อ-สกุล", "ห้อง", "รหัสนักเรียน"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for i, reg := range regs {
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), reg.ActivityTitle)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), reg.StudentName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), reg.StudentClassroom)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), reg.StudentNumber)
	}
	return f, nil
}
