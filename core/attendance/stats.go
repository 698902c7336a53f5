package attendance

import (
	"sort"
	"time"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

// The functions in this file are pure and total: empty input gives an empty or zero result.

type (
	StudentStats struct {
		Student   school.Student `json:"student"`
		Present   int            `json:"present"`
		TotalDays int            `json:"total_days"`
		Percent   float64        `json:"percent"`
	}

	// ClassInput is what ClassRanking needs to know about one class.
	ClassInput struct {
		Class   school.ClassRoom
		Roster  []school.Student
		Records []Attendance
	}

	ClassRank struct {
		Class     school.ClassRoom `json:"class"`
		Students  int              `json:"students"`
		TotalDays int              `json:"total_days"`
		Present   int              `json:"present"`
		Percent   float64          `json:"percent"`
	}

	TeacherRank struct {
		TeacherID   string  `json:"teacher_id"`
		TeacherName string  `json:"teacher_name"`
		Classes     int     `json:"classes"`
		Percent     float64 `json:"percent"`
	}

	StudentSummary struct {
		Lessons int     `json:"lessons"`
		Present int     `json:"present"`
		Absent  int     `json:"absent"`
		Percent float64 `json:"percent"`
	}
)

// Rankable reports whether the class took part in the school percentages.
func (cr ClassRank) Rankable() bool {
	return cr.Students > 0 && cr.TotalDays > 0
}

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

// activeDays returns the distinct day-starts of the records inside rng.
func activeDays(records []Attendance, rng DateRange) map[time.Time]struct{} {
	days := make(map[time.Time]struct{})
	for _, rec := range records {
		day := core.TruncateDay(rec.Date)
		if rng.Contains(day) {
			days[day] = struct{}{}
		}
	}
	return days
}

// PerStudentStats computes every roster student's presence over the class active days in rng.
// The result is sorted by percent, highest first, keeping roster order on ties.
// It is empty when no record falls inside rng.
func PerStudentStats(roster []school.Student, records []Attendance, rng DateRange) []StudentStats {
	days := activeDays(records, rng)
	totalDays := len(days)
	if totalDays == 0 {
		return []StudentStats{}
	}

	presentDays := make(map[string]map[time.Time]struct{}, len(roster))
	for _, rec := range records {
		if !rec.Present {
			continue
		}
		day := core.TruncateDay(rec.Date)
		if _, ok := days[day]; !ok {
			continue
		}
		set, ok := presentDays[rec.StudentID]
		if !ok {
			set = make(map[time.Time]struct{})
			presentDays[rec.StudentID] = set
		}
		set[day] = struct{}{}
	}

	stats := make([]StudentStats, 0, len(roster))
	for _, st := range roster {
		present := len(presentDays[st.ID])
		stats = append(stats, StudentStats{
			Student:   st,
			Present:   present,
			TotalDays: totalDays,
			Percent:   percent(present, totalDays),
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Percent > stats[j].Percent })
	return stats
}

// ClassAverage is Σ present / (total days × roster size) × 100, from raw counts.
func ClassAverage(stats []StudentStats) float64 {
	if len(stats) == 0 {
		return 0
	}
	var present int
	for _, s := range stats {
		present += s.Present
	}
	return percent(present, stats[0].TotalDays*len(stats))
}

// ClassRanking ranks classes by their own ClassAverage, highest first.
// Classes without students or active days are kept with a zero percent.
func ClassRanking(classes []ClassInput) []ClassRank {
	ranks := make([]ClassRank, 0, len(classes))
	for _, c := range classes {
		rank := ClassRank{Class: c.Class, Students: len(c.Roster)}
		if len(c.Roster) > 0 {
			stats := PerStudentStats(c.Roster, c.Records, DateRange{})
			if len(stats) > 0 {
				rank.TotalDays = stats[0].TotalDays
				for _, s := range stats {
					rank.Present += s.Present
				}
				rank.Percent = ClassAverage(stats)
			}
		}
		ranks = append(ranks, rank)
	}
	sort.SliceStable(ranks, func(i, j int) bool { return ranks[i].Percent > ranks[j].Percent })
	return ranks
}

// TeacherAverage groups ranked classes by teacher and averages their class percentages.
// Only rankable classes count; teachers left without one get a zero percent.
// Detached classes (no teacher) are skipped. Sorted by percent, highest first.
func TeacherAverage(ranks []ClassRank) []TeacherRank {
	type acc struct {
		sum     float64
		counted int
		classes int
	}
	var order []string
	byTeacher := make(map[string]*acc)
	for _, r := range ranks {
		tid := r.Class.TeacherID
		if tid == "" {
			continue
		}
		a, ok := byTeacher[tid]
		if !ok {
			a = new(acc)
			byTeacher[tid] = a
			order = append(order, tid)
		}
		a.classes++
		if r.Rankable() {
			a.sum += r.Percent
			a.counted++
		}
	}

	teachers := make([]TeacherRank, 0, len(order))
	for _, tid := range order {
		a := byTeacher[tid]
		tr := TeacherRank{TeacherID: tid, Classes: a.classes}
		if a.counted > 0 {
			tr.Percent = a.sum / float64(a.counted)
		}
		teachers = append(teachers, tr)
	}
	sort.SliceStable(teachers, func(i, j int) bool { return teachers[i].Percent > teachers[j].Percent })
	return teachers
}

// SchoolPercent is Σ present / Σ possible over the rankable classes.
func SchoolPercent(ranks []ClassRank) float64 {
	var present, possible int
	for _, r := range ranks {
		if !r.Rankable() {
			continue
		}
		present += r.Present
		possible += r.TotalDays * r.Students
	}
	return percent(present, possible)
}

// Summarize counts a student's lessons, one per record.
func Summarize(records []Attendance) StudentSummary {
	sum := StudentSummary{Lessons: len(records)}
	for _, rec := range records {
		if rec.Present {
			sum.Present++
		}
	}
	sum.Absent = sum.Lessons - sum.Present
	sum.Percent = percent(sum.Present, sum.Lessons)
	return sum
}
