package progress

import "time"

// Streak counts consecutive calendar days ending today that appear in
// dates. Today is required: if today is missing the streak is 0, even when
// yesterday and earlier days are present. Duplicate keys collapse.
func Streak(dates []string, now time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	days := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		days[d] = struct{}{}
	}

	n := 0
	for cursor := civil(now); ; cursor = cursor.AddDate(0, 0, -1) {
		if _, ok := days[DateKey(cursor)]; !ok {
			break
		}
		n++
	}
	return n
}

// CountUniqueDates returns the number of distinct keys in dates.
func CountUniqueDates(dates []string) int {
	if len(dates) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		seen[d] = struct{}{}
	}
	return len(seen)
}
