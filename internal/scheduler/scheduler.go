// Package scheduler computes calendar-mask fire times and maintains the
// run plan: the in-memory projection of each task's next firing used to
// derive the event loop's poll deadline.
package scheduler

import (
	"time"

	"erraid/internal/common"
)

const stepSeconds = 60

// NextOccurrence returns the smallest epoch t > fromEpoch such that t is
// minute-aligned and the minute/hour/weekday bits of sched are all set
// under local-time decomposition of t. It returns
// (common.NoOccurrence, false) if the schedule is disabled or no match
// exists within the one-year search horizon.
func NextOccurrence(sched common.Schedule, fromEpoch int64) (int64, bool) {
	if !sched.Enabled {
		return common.NoOccurrence, false
	}
	if fromEpoch < 0 {
		fromEpoch = 0
	}

	probe := (fromEpoch - (fromEpoch % stepSeconds)) + stepSeconds

	for i := 0; i < common.SearchHorizonSteps; i++ {
		t := time.Unix(probe, 0).In(time.Local)
		weekday := int(t.Weekday())
		hour := t.Hour()
		minute := t.Minute()

		if sched.WeekdayMask&(1<<uint(weekday)) != 0 &&
			sched.HourMask&(1<<uint(hour)) != 0 &&
			sched.MinuteMask&(1<<uint(minute)) != 0 {
			return probe, true
		}

		probe += stepSeconds
	}

	return common.NoOccurrence, false
}

// ComputePlan builds one PlanEntry per task, in task-list order, using
// referenceEpoch as the search origin for every entry.
func ComputePlan(tasks []common.Task, referenceEpoch int64) []common.PlanEntry {
	entries := make([]common.PlanEntry, len(tasks))
	for i, task := range tasks {
		next := common.NoOccurrence
		if occ, ok := NextOccurrence(task.Schedule, referenceEpoch); ok {
			next = occ
		}
		entries[i] = common.PlanEntry{
			TaskID:    task.ID,
			TaskIndex: i,
			NextEpoch: next,
		}
	}
	return entries
}

// NextDeadline returns the smallest non-sentinel NextEpoch across plan,
// and whether such a deadline exists. Callers use this to derive the
// event loop's poll timeout.
func NextDeadline(plan []common.PlanEntry) (int64, bool) {
	var (
		best  int64
		found bool
	)
	for _, e := range plan {
		if e.NextEpoch == common.NoOccurrence {
			continue
		}
		if !found || e.NextEpoch < best {
			best = e.NextEpoch
			found = true
		}
	}
	return best, found
}

// DueEntries returns the indices into plan whose NextEpoch is due at or
// before now, in plan order (which is task-index order, satisfying the
// same-epoch tie-break rule).
func DueEntries(plan []common.PlanEntry, now int64) []int {
	var due []int
	for i, e := range plan {
		if e.NextEpoch != common.NoOccurrence && e.NextEpoch <= now {
			due = append(due, i)
		}
	}
	return due
}
