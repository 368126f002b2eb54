package studysession

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ExportHeader lists the columns of an export, in order.
var ExportHeader = []string{
	"Date", "Subject", "Title", "Duration (minutes)", "Duration (formatted)", "Focus", "Tags", "Notes",
}

// ContentType returns the MIME type of an export `format`.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ExportFilename returns the attachment filename of an export made on `day`.
func ExportFilename(format string, day time.Time) string {
	return fmt.Sprintf("study-sessions-%s.%s", day.UTC().Format("2006-01-02"), format)
}

// ExportRows renders `sessions` as rows of cells matching ExportHeader.
// `subjectNames` maps subject ids to names; sessions without a known subject get an empty cell.
func ExportRows(sessions []StudySession, subjectNames map[string]string) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, sess := range sessions {
		focus := ""
		if sess.FocusRating > 0 {
			focus = strconv.Itoa(sess.FocusRating)
		}
		rows = append(rows, []string{
			sess.StartedAt.UTC().Format("2006-01-02 15:04"),
			escapeFormula(subjectNames[sess.SubjectID]),
			escapeFormula(sess.Title),
			strconv.Itoa(sess.DurationMinutes),
			FormatDuration(sess.DurationMinutes),
			focus,
			escapeFormula(strings.Join(sess.Tags, "; ")),
			escapeFormula(sess.Notes),
		})
	}
	return rows
}

// escapeFormula keeps spreadsheet apps from evaluating user text as a formula.
func escapeFormula(s string) string {
	if s != "" && strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}

// WriteCSV writes the header and one line per session to `w`.
func WriteCSV(w io.Writer, sessions []StudySession, subjectNames map[string]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return errors.Wrap(err, "writing csv header")
	}
	if err := cw.WriteAll(ExportRows(sessions, subjectNames)); err != nil {
		return errors.Wrap(err, "writing csv rows")
	}
	return nil
}

// WriteXLSX writes a single sheet workbook with the same content as WriteCSV to `w`.
func WriteXLSX(w io.Writer, sessions []StudySession, subjectNames map[string]string) error {
	const sheet = "Study Sessions"

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return errors.Wrap(err, "naming sheet")
	}

	rows := append([][]string{ExportHeader}, ExportRows(sessions, subjectNames)...)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "computing cell name")
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
			// keep numbers numeric so the sheet can sum them up
			if j == 3 && i > 0 {
				if n, err := strconv.Atoi(v); err == nil {
					values[j] = n
				}
			}
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "writing workbook")
	}
	return nil
}
