package studysession

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/studypal/core"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{-5, "0m"},
		{0, "0m"},
		{1, "1m"},
		{45, "45m"},
		{60, "1h"},
		{90, "1h 30m"},
		{120, "2h"},
		{1441, "24h 1m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q; want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestSessionData_resolveInterval(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	start := now.Add(-2 * time.Hour)

	fieldErr := func(field, msg string) error {
		return core.NewValidationError(nil, core.FieldError{Field: field, Error: msg})
	}

	tests := []struct {
		name         string
		data         SessionData
		wantEnd      time.Time
		wantDuration int
		wantErr      error
	}{
		{
			name:         "end from duration",
			data:         SessionData{StartedAt: start, DurationMinutes: 45},
			wantEnd:      start.Add(45 * time.Minute),
			wantDuration: 45,
		},
		{
			name:         "duration from interval",
			data:         SessionData{StartedAt: start, EndedAt: start.Add(90*time.Minute + 20*time.Second)},
			wantEnd:      start.Add(90*time.Minute + 20*time.Second),
			wantDuration: 90,
		},
		{
			name:         "duration shorter than interval (breaks)",
			data:         SessionData{StartedAt: start, EndedAt: start.Add(time.Hour), DurationMinutes: 50},
			wantEnd:      start.Add(time.Hour),
			wantDuration: 50,
		},
		{
			name:         "slightly in the future",
			data:         SessionData{StartedAt: now.Add(4 * time.Minute), DurationMinutes: 30},
			wantEnd:      now.Add(34 * time.Minute),
			wantDuration: 30,
		},
		{
			name:    "in the future",
			data:    SessionData{StartedAt: now.Add(10 * time.Minute), DurationMinutes: 30},
			wantErr: fieldErr("started_at", "cannot be in the future"),
		},
		{
			name:    "neither end nor duration",
			data:    SessionData{StartedAt: start},
			wantErr: fieldErr("duration_minutes", "one of ended_at or duration_minutes is required"),
		},
		{
			name:    "end before start",
			data:    SessionData{StartedAt: start, EndedAt: start.Add(-time.Minute)},
			wantErr: fieldErr("ended_at", "must be after started_at"),
		},
		{
			name:    "duration exceeds interval",
			data:    SessionData{StartedAt: start, EndedAt: start.Add(30 * time.Minute), DurationMinutes: 31},
			wantErr: fieldErr("duration_minutes", "cannot exceed the time between started_at and ended_at"),
		},
		{
			name:    "less than a minute",
			data:    SessionData{StartedAt: start, EndedAt: start.Add(20 * time.Second)},
			wantErr: fieldErr("duration_minutes", "must be between 1 minute and 24 hours"),
		},
		{
			name:    "more than a day",
			data:    SessionData{StartedAt: start.Add(-48 * time.Hour), DurationMinutes: MaxDurationMinutes + 1},
			wantErr: fieldErr("duration_minutes", "must be between 1 minute and 24 hours"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.data
			err := data.resolveInterval(now)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantEnd, data.EndedAt)
			assert.Equal(t, tt.wantDuration, data.DurationMinutes)
		})
	}
}

func sessionsOn(days ...time.Time) []StudySession {
	sessions := make([]StudySession, 0, len(days))
	for _, d := range days {
		sessions = append(sessions, StudySession{StartedAt: d, DurationMinutes: 30})
	}
	return sessions
}

func TestStreaks(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	daysAgo := func(n int, hour int) time.Time {
		d := now.AddDate(0, 0, -n)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name        string
		sessions    []StudySession
		wantCurrent int
		wantLongest int
	}{
		{name: "none"},
		{name: "today only", sessions: sessionsOn(daysAgo(0, 8)), wantCurrent: 1, wantLongest: 1},
		{
			name:        "several sessions a day count once",
			sessions:    sessionsOn(daysAgo(0, 1), daysAgo(0, 7), daysAgo(1, 23), daysAgo(1, 0)),
			wantCurrent: 2, wantLongest: 2,
		},
		{
			name:        "ending yesterday",
			sessions:    sessionsOn(daysAgo(3, 10), daysAgo(2, 10), daysAgo(1, 10)),
			wantCurrent: 3, wantLongest: 3,
		},
		{
			name:        "broken",
			sessions:    sessionsOn(daysAgo(2, 10), daysAgo(10, 10), daysAgo(11, 10), daysAgo(12, 10), daysAgo(13, 10)),
			wantCurrent: 0, wantLongest: 4,
		},
		{
			name:        "gap before today",
			sessions:    sessionsOn(daysAgo(0, 5), daysAgo(2, 5), daysAgo(3, 5)),
			wantCurrent: 1, wantLongest: 2,
		},
		{
			name: "other timezones are counted in UTC",
			sessions: sessionsOn(
				time.Date(2024, 5, 10, 1, 0, 0, 0, time.FixedZone("UTC+3", 3*3600)), // May 9th 22:00 UTC
				daysAgo(0, 6),
			),
			wantCurrent: 2, wantLongest: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCurrent, CurrentStreak(tt.sessions, now), "current")
			assert.Equal(t, tt.wantLongest, LongestStreak(tt.sessions), "longest")
		})
	}
}

func TestTotalMinutes(t *testing.T) {
	now := time.Now().UTC()
	sessions := []StudySession{
		{StartedAt: now.Add(-time.Hour), DurationMinutes: 30},
		{StartedAt: now.Add(-72 * time.Hour), DurationMinutes: 45},
		{StartedAt: now.Add(-10 * 24 * time.Hour), DurationMinutes: 60},
	}
	assert.Equal(t, 0, TotalMinutes(nil))
	assert.Equal(t, 135, TotalMinutes(sessions))
	assert.Equal(t, 75, TotalMinutes(sessions, now.Add(-7*24*time.Hour)))
	assert.Equal(t, 30, TotalMinutes(sessions, now.Add(-time.Hour)))
}

func exportFixture() ([]StudySession, map[string]string) {
	start := time.Date(2024, 5, 9, 18, 30, 0, 0, time.UTC)
	sessions := []StudySession{
		{
			SubjectID: "s1", Title: "Algebra, chapter 2", StartedAt: start, DurationMinutes: 90,
			FocusRating: 4, Tags: []string{"homework", "exam"}, Notes: "Quotes \"here\"",
		},
		{SubjectID: "gone", Title: "Free reading", StartedAt: start.Add(-24 * time.Hour), DurationMinutes: 20, Tags: []string{}},
	}
	return sessions, map[string]string{"s1": "Maths"}
}

func TestWriteCSV(t *testing.T) {
	sessions, names := exportFixture()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sessions, names))

	want := "Date,Subject,Title,Duration (minutes),Duration (formatted),Focus,Tags,Notes\n" +
		"2024-05-09 18:30,Maths,\"Algebra, chapter 2\",90,1h 30m,4,homework; exam,\"Quotes \"\"here\"\"\"\n" +
		"2024-05-08 18:30,,Free reading,20,20m,,,\n"
	assert.Equal(t, want, buf.String())
}

func TestExportRows_formulas(t *testing.T) {
	sess := StudySession{
		StartedAt:       time.Date(2024, 5, 9, 18, 30, 0, 0, time.UTC),
		SubjectID:       "s1",
		Title:           "=HYPERLINK(\"http://evil.test\")",
		DurationMinutes: 30,
		Tags:            []string{"+cmd", "exam"},
		Notes:           "@SUM(A1:A2)",
	}
	rows := ExportRows([]StudySession{sess}, map[string]string{"s1": "-Maths"})
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"2024-05-09 18:30", "'-Maths", "'=HYPERLINK(\"http://evil.test\")", "30", "30m", "", "'+cmd; exam", "'@SUM(A1:A2)",
	}, rows[0])

	for in, want := range map[string]string{"": "", "plain": "plain", "\tx": "'\tx", "a=b": "a=b", "-": "'-"} {
		assert.Equal(t, want, escapeFormula(in), in)
	}
}

func TestWriteXLSX(t *testing.T) {
	sessions, names := exportFixture()

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sessions, names))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Study Sessions")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ExportHeader, rows[0])
	assert.Equal(t, []string{"2024-05-09 18:30", "Maths", "Algebra, chapter 2", "90", "1h 30m", "4", "homework; exam", "Quotes \"here\""}, rows[1])
	assert.Equal(t, []string{"2024-05-08 18:30", "", "Free reading", "20", "20m"}, rows[2])
}

func TestExportFilename(t *testing.T) {
	day := time.Date(2024, 1, 2, 23, 0, 0, 0, time.FixedZone("UTC-2", -2*3600))
	assert.Equal(t, "study-sessions-2024-01-03.csv", ExportFilename(FormatCSV, day))
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(FormatCSV))
	assert.Contains(t, ContentType(FormatXLSX), "spreadsheetml")
}
