package retention

import (
	"fmt"
	"sort"
	"time"

	"tarkeep/internal/archive"
)

// Bucket identifies which quota slot kept an archive.
type Bucket string

const (
	BucketDaily   Bucket = "daily"
	BucketWeekly  Bucket = "weekly"
	BucketMonthly Bucket = "monthly"
	BucketNone    Bucket = ""
)

// UnparseablePolicy decides the fate of names without a timestamp.
type UnparseablePolicy string

const (
	UnparseableDelete UnparseablePolicy = "delete"
	UnparseableKeep   UnparseablePolicy = "keep"
)

// Quotas are the keep counts per calendar bucket.
type Quotas struct {
	Daily   int
	Weekly  int
	Monthly int
}

// Decision records the classification of one archive name.
type Decision struct {
	Name        string
	Timestamp   time.Time
	Keep        bool
	Bucket      Bucket
	Unparseable bool
}

// Classify walks archive names newest-to-oldest and decides survivors
// under the daily/weekly/monthly quotas. Within any single day, ISO
// week, or month only the newest archive can satisfy that period's
// slot; older archives in the same period fall through to a coarser
// bucket or to deletion. An archive is kept under at most one bucket,
// so the total kept never exceeds the sum of the quotas.
func Classify(names []string, quotas Quotas, policy UnparseablePolicy) []Decision {
	sorted := make([]string, len(names))
	copy(sorted, names)
	// Names encode minute timestamps with fixed-width fields, so
	// descending lexical order is newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(sorted)))

	var (
		dailySeen   = map[string]struct{}{}
		weeklySeen  = map[string]struct{}{}
		monthlySeen = map[string]struct{}{}
		dailyKept   int
		weeklyKept  int
		monthlyKept int
	)

	decisions := make([]Decision, 0, len(sorted))
	for _, name := range sorted {
		_, ts, ok := archive.ParseName(name)
		if !ok {
			decisions = append(decisions, Decision{
				Name:        name,
				Keep:        policy == UnparseableKeep,
				Unparseable: true,
			})
			continue
		}

		decision := Decision{Name: name, Timestamp: ts}
		dayKey, weekKey, monthKey := bucketKeys(ts)

		switch {
		case notSeen(dailySeen, dayKey) && dailyKept < quotas.Daily:
			dailySeen[dayKey] = struct{}{}
			dailyKept++
			decision.Keep = true
			decision.Bucket = BucketDaily
		case notSeen(weeklySeen, weekKey) && weeklyKept < quotas.Weekly:
			weeklySeen[weekKey] = struct{}{}
			weeklyKept++
			decision.Keep = true
			decision.Bucket = BucketWeekly
		case notSeen(monthlySeen, monthKey) && monthlyKept < quotas.Monthly:
			monthlySeen[monthKey] = struct{}{}
			monthlyKept++
			decision.Keep = true
			decision.Bucket = BucketMonthly
		}

		decisions = append(decisions, decision)
	}
	return decisions
}

// bucketKeys derives the calendar grouping keys for a timestamp:
// calendar day, ISO 8601 (year, week), and (year, month).
func bucketKeys(ts time.Time) (day, week, month string) {
	isoYear, isoWeek := ts.ISOWeek()
	return ts.Format("2006-01-02"),
		fmt.Sprintf("%04d-W%02d", isoYear, isoWeek),
		ts.Format("2006-01")
}

func notSeen(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return !ok
}
