// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"
	"time"

	"github.com/verte-zerg/diktor/internal/model"
)

const defaultDays = 30

// Report contains precomputed data for history rendering.
type Report struct {
	Records       []model.SessionRecord
	PerExercise   []model.ExerciseCount
	Daily         []model.DayCount
	ActiveDays    int
	CurrentStreak int
	LongestStreak int
}

// BuildReport filters records and aggregates them by exercise and by local day.
// days bounds the daily series; zero means the default window.
func BuildReport(records []model.SessionRecord, filter model.HistoryFilter, now time.Time, days int) Report {
	filtered := filterRecords(records, filter)
	if days <= 0 {
		days = defaultDays
	}
	loc := now.Location()
	counts := countByDay(filtered, loc)
	return Report{
		Records:       filtered,
		PerExercise:   countByExercise(filtered),
		Daily:         dailySeries(counts, now, days),
		ActiveDays:    len(counts),
		CurrentStreak: currentStreak(counts, now),
		LongestStreak: longestStreak(counts),
	}
}

func filterRecords(records []model.SessionRecord, filter model.HistoryFilter) []model.SessionRecord {
	out := make([]model.SessionRecord, 0, len(records))
	for _, r := range records {
		if filter.Since != nil && r.Date.Before(*filter.Since) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	if filter.Last > 0 && len(out) > filter.Last {
		out = out[len(out)-filter.Last:]
	}
	return out
}

func countByExercise(records []model.SessionRecord) []model.ExerciseCount {
	index := map[string]int{}
	var out []model.ExerciseCount
	for _, r := range records {
		i, ok := index[r.ExerciseID]
		if !ok {
			i = len(out)
			index[r.ExerciseID] = i
			out = append(out, model.ExerciseCount{ExerciseID: r.ExerciseID})
		}
		out[i].Count++
		if r.Date.After(out[i].LastAt) {
			out[i].LastAt = r.Date
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].ExerciseID < out[j].ExerciseID
		}
		return out[i].Count > out[j].Count
	})
	return out
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func countByDay(records []model.SessionRecord, loc *time.Location) map[time.Time]int {
	counts := map[time.Time]int{}
	for _, r := range records {
		counts[dayOf(r.Date, loc)]++
	}
	return counts
}

func dailySeries(counts map[time.Time]int, now time.Time, days int) []model.DayCount {
	today := dayOf(now, now.Location())
	out := make([]model.DayCount, days)
	for i := 0; i < days; i++ {
		day := today.AddDate(0, 0, i-days+1)
		out[i] = model.DayCount{Day: day, Count: counts[day]}
	}
	return out
}

// currentStreak counts consecutive practice days ending today, or yesterday
// when today has no entries yet.
func currentStreak(counts map[time.Time]int, now time.Time) int {
	day := dayOf(now, now.Location())
	if counts[day] == 0 {
		day = day.AddDate(0, 0, -1)
	}
	streak := 0
	for counts[day] > 0 {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

func longestStreak(counts map[time.Time]int) int {
	days := make([]time.Time, 0, len(counts))
	for d := range counts {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	best, run := 0, 0
	for i, d := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}
