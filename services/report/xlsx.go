package reportsvc

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/attendance/core/attendance"
)

const (
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	statsSheet   = "Statistics"
	rankingSheet = "Ranking"
)

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err = f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	return nil
}

func newBook(sheet string, widths map[string]float64) (*excelize.File, error) {
	f := excelize.NewFile()
	// rename the default sheet so the book has a single one
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	for col, w := range widths {
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return nil, errors.Wrap(err, "sizing column")
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, errors.Wrap(err, "creating style")
	}
	if err = f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}
	return f, nil
}

func toBytes(f *excelize.File) ([]byte, error) {
	defer func() { _ = f.Close() }()
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buf.Bytes(), nil
}

// ClassStats renders a class's statistics as an xlsx workbook with one "Statistics" sheet.
func ClassStats(stats attendance.ClassStats) ([]byte, error) {
	f, err := newBook(statsSheet, map[string]float64{"A": 6, "B": 32, "C": 10, "D": 10, "E": 10})
	if err != nil {
		return nil, err
	}

	rows := [][]interface{}{{"#", "Student", "Present", "Days", "Percent"}}
	for _, s := range stats.Students {
		rows = append(rows, []interface{}{s.Student.Number, s.Student.Name, s.Present, s.TotalDays, formatPercent(s.Percent)})
	}
	rows = append(rows, []interface{}{"", "Class average", "", "", formatPercent(stats.Average)})
	if err = writeRows(f, statsSheet, rows); err != nil {
		return nil, err
	}
	return toBytes(f)
}

// SchoolRanking renders the class and teacher rankings of a school.
func SchoolRanking(stats attendance.SchoolStats) ([]byte, error) {
	f, err := newBook(rankingSheet, map[string]float64{"A": 6, "B": 28, "C": 10, "D": 10, "E": 10})
	if err != nil {
		return nil, err
	}

	rows := [][]interface{}{{"#", "Class", "Students", "Days", "Percent"}}
	for i, c := range stats.Classes {
		rows = append(rows, []interface{}{i + 1, c.Class.Name, c.Students, c.TotalDays, formatPercent(c.Percent)})
	}
	rows = append(rows, []interface{}{"", "School", "", "", formatPercent(stats.Percent)})
	rows = append(rows, []interface{}{})
	rows = append(rows, []interface{}{"#", "Teacher", "Classes", "", "Percent"})
	for i, tr := range stats.Teachers {
		rows = append(rows, []interface{}{i + 1, tr.TeacherName, tr.Classes, "", formatPercent(tr.Percent)})
	}
	if err = writeRows(f, rankingSheet, rows); err != nil {
		return nil, err
	}
	return toBytes(f)
}
