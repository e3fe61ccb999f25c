// Package streak derives consecutive-day statistics from a habit's
// completion history. Everything here is pure: "today" is always passed in.
package streak

import (
	"slices"

	"github.com/brk3/habitstreak/pkg/habit"
)

// Compute returns streak statistics for days as seen on today.
//
// The input may be in any order and may contain duplicates. The current
// streak is the run ending at the latest completion, and only counts when
// that completion is today or yesterday.
func Compute(days []habit.Date, today habit.Date) habit.Stats {
	sorted := uniqueSorted(days)
	if len(sorted) == 0 {
		return habit.Stats{CompletionDates: []habit.Date{}}
	}

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i] == sorted[i-1].AddDays(1) {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	current := 0
	last := sorted[len(sorted)-1]
	if last == today || last == today.AddDays(-1) {
		current = run
	}

	return habit.Stats{
		CurrentStreak:    current,
		LongestStreak:    longest,
		TotalCompletions: len(sorted),
		CompletionDates:  sorted,
	}
}

// Summarize extends Compute with first/last completion and monthly counts.
func Summarize(days []habit.Date, today habit.Date) habit.Summary {
	s := habit.Summary{Stats: Compute(days, today), AsOf: today}
	dates := s.CompletionDates
	if len(dates) == 0 {
		return s
	}
	s.FirstCompleted = dates[0]
	s.LastCompleted = dates[len(dates)-1]

	type month struct {
		year int
		m    int
	}
	perMonth := make(map[month]int)
	for _, d := range dates {
		k := month{d.Year(), int(d.Month())}
		perMonth[k]++
		s.BestMonth = max(s.BestMonth, perMonth[k])
	}
	s.ThisMonth = perMonth[month{today.Year(), int(today.Month())}]
	return s
}

func uniqueSorted(days []habit.Date) []habit.Date {
	out := slices.Clone(days)
	slices.SortFunc(out, habit.Date.Compare)
	return slices.Compact(out)
}
