package studysession

import (
	"sort"
	"time"
)

const day = 24 * time.Hour

// studyDays returns the distinct UTC days sessions started on, oldest first.
func studyDays(sessions []StudySession) []time.Time {
	seen := make(map[time.Time]struct{}, len(sessions))
	days := make([]time.Time, 0, len(sessions))
	for _, sess := range sessions {
		d := sess.StartedAt.UTC().Truncate(day)
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// LongestStreak returns the longest run of consecutive UTC days with at least one session.
func LongestStreak(sessions []StudySession) int {
	days := studyDays(sessions)
	longest, run := 0, 0
	for i, d := range days {
		if i > 0 && d.Sub(days[i-1]) == day {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// CurrentStreak returns the run of consecutive study days ending today or yesterday (UTC).
func CurrentStreak(sessions []StudySession, now time.Time) int {
	days := studyDays(sessions)
	if len(days) == 0 {
		return 0
	}
	today := now.UTC().Truncate(day)
	last := days[len(days)-1]
	if last.Before(today.Add(-day)) {
		return 0
	}
	streak := 1
	for i := len(days) - 1; i > 0; i-- {
		if days[i].Sub(days[i-1]) != day {
			break
		}
		streak++
	}
	return streak
}

// TotalMinutes sums the duration of `sessions`, optionally only those started at or after `since`.
func TotalMinutes(sessions []StudySession, since ...time.Time) int {
	total := 0
	for _, sess := range sessions {
		if len(since) > 0 && sess.StartedAt.Before(since[0]) {
			continue
		}
		total += sess.DurationMinutes
	}
	return total
}
