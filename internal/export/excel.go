package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/apply-portal/internal/models"
)

const (
	summarySheet     = "Summary"
	submissionsSheet = "Submissions"
)

// Report is what gets written to the workbook
type Report struct {
	Candidate   *models.Candidate
	Records     []models.SubmissionRecord
	GeneratedAt time.Time
}

// ExportToExcel generates an Excel file with the submission report
func ExportToExcel(report Report, outputPath string) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	// Ensure output path has .xlsx extension
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath = outputPath + ".xlsx"
	}

	// Clean the path for cross-platform compatibility (Windows paths)
	outputPath = filepath.Clean(outputPath)

	if err := f.SaveAs(outputPath); err != nil {
		// If direct save fails, try buffer write fallback
		var buf bytes.Buffer
		if writeErr := f.Write(&buf); writeErr != nil {
			return errors.Wrapf(writeErr, "failed to save Excel file: direct save failed (%v), buffer write also failed", err)
		}
		if fileErr := os.WriteFile(outputPath, buf.Bytes(), 0644); fileErr != nil {
			return errors.Wrapf(fileErr, "failed to save Excel file: direct save failed (%v), file write failed", err)
		}
	}

	return nil
}

// WriteExcel streams the workbook to w
func WriteExcel(report Report, w io.Writer) error {
	f, err := buildWorkbook(report)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write Excel report")
	}
	return nil
}

func buildWorkbook(report Report) (*excelize.File, error) {
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now()
	}

	f := excelize.NewFile()

	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(submissionsSheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create submissions sheet")
	}

	if err := createSummarySheet(f, summarySheet, report); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create summary sheet")
	}

	if err := createSubmissionsSheet(f, submissionsSheet, report.Records); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create submissions sheet")
	}

	return f, nil
}

// createSummarySheet writes who applied, when, and how it went
func createSummarySheet(f *excelize.File, sheetName string, report Report) error {
	f.SetColWidth(sheetName, "A", "A", 25)
	f.SetColWidth(sheetName, "B", "B", 50)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	labelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return err
	}

	row := 1

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Submission Report")
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	row += 2

	label := func(name string, value any) {
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), name)
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), value)
		row++
	}

	label("Generated:", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	uuid, candidateID := "-", "-"
	if report.Candidate != nil {
		uuid = report.Candidate.UUID.String()
		candidateID = report.Candidate.CandidateID.String()
	}
	label("uuid:", uuid)
	label("candidateId:", candidateID)
	row++

	counts := map[string]int{}
	for _, r := range report.Records {
		counts[r.Status()]++
	}

	f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), "Statistics:")
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row), headerStyle)
	f.MergeCell(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	row++

	label("Positions listed:", len(report.Records))
	label("Submitted:", counts["submitted"])
	label("Failed:", counts["failed"])
	label("Pending:", counts["pending"]+counts["sending"])

	return nil
}

// createSubmissionsSheet writes one row per job, color-coded by status
func createSubmissionsSheet(f *excelize.File, sheetName string, records []models.SubmissionRecord) error {
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 30)
	f.SetColWidth(sheetName, "C", "C", 45)
	f.SetColWidth(sheetName, "D", "D", 12)
	f.SetColWidth(sheetName, "E", "E", 40)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	// Same palette as the on-screen banners
	successStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"EAFFEA"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	errorStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFE6E6"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	headers := []string{"Job ID", "Title", "Repository URL", "Status", "Message"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}
	f.SetCellStyle(sheetName, "A1", "E1", headerStyle)

	for i, r := range records {
		row := i + 2
		message := r.State.Success
		if r.State.Error != "" {
			message = r.State.Error
		}

		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), r.JobID)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), r.Title)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), r.RepoURL)
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), r.Status())
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), message)

		switch r.Status() {
		case "submitted":
			f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), successStyle)
		case "failed":
			f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), errorStyle)
		}
	}

	return nil
}
