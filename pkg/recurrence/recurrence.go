// Package recurrence implements the next-occurrence calendar math for
// recurring reminders. It is pure: no I/O, no clock reads.
package recurrence

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Recognized frequency values. Anything else means one-shot.
const (
	FreqNone    = "None"
	FreqDaily   = "Daily"
	FreqWeekly  = "Weekly"
	FreqMonthly = "Monthly"
	FreqYearly  = "Yearly"
)

// Advance returns the next fire instant after current for the given
// frequency. The result is strictly after current for every recognized
// recurring frequency, and equal to current otherwise (one-shot).
//
// Monthly and Yearly use Go's AddDate normalization, so a day-of-month the
// target month lacks rolls forward: Jan 31 + 1 month lands on Mar 3 (Mar 2
// in leap years). The roll-forward policy is deliberate; it keeps
// advancement strictly monotonic without clamping logic.
func Advance(current time.Time, frequency string, days []time.Weekday) time.Time {
	switch frequency {
	case FreqDaily:
		return current.AddDate(0, 0, 1)
	case FreqWeekly:
		return advanceWeekly(current, days)
	case FreqMonthly:
		return current.AddDate(0, 1, 0)
	case FreqYearly:
		return current.AddDate(1, 0, 0)
	}
	return current
}

// advanceWeekly picks the smallest selected weekday strictly after the
// current one, wrapping to the earliest selected day of the following week
// when none remains. An empty selection advances by exactly one week.
func advanceWeekly(current time.Time, days []time.Weekday) time.Time {
	selected := Normalize(days)
	if len(selected) == 0 {
		return current.AddDate(0, 0, 7)
	}

	cur := int(current.Weekday())
	for _, d := range selected {
		if int(d) > cur {
			return current.AddDate(0, 0, int(d)-cur)
		}
	}
	// Wrap to next week's earliest selected day.
	return current.AddDate(0, 0, 7-cur+int(selected[0]))
}

// Normalize returns the selection sorted ascending with duplicates and
// out-of-range values dropped.
func Normalize(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool, len(days))
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseDays decodes a stored weekday selection. It accepts a JSON array of
// tokens (["Mon","Fri"]), a JSON array of indexes ([1,5]), or the legacy raw
// encodings "[Mon, Fri]" and "Mon,Fri". Tokens that cannot be decoded are
// skipped; an undecodable value yields an empty selection, never an error.
func ParseDays(raw string) []time.Weekday {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" || raw == "null" {
		return nil
	}

	var tokens []string
	if err := json.Unmarshal([]byte(raw), &tokens); err == nil {
		return fromTokens(tokens)
	}
	var indexes []int
	if err := json.Unmarshal([]byte(raw), &indexes); err == nil {
		tokens = make([]string, len(indexes))
		for i, n := range indexes {
			tokens[i] = strconv.Itoa(n)
		}
		return fromTokens(tokens)
	}

	// Legacy raw-string shape: strip brackets and quotes, split on commas.
	raw = strings.Trim(raw, "[]")
	raw = strings.NewReplacer(`"`, "", "'", "").Replace(raw)
	return fromTokens(strings.Split(raw, ","))
}

// Tokens returns the canonical short-name encoding used in storage.
func Tokens(days []time.Weekday) []string {
	out := make([]string, 0, len(days))
	for _, d := range Normalize(days) {
		out = append(out, d.String()[:3])
	}
	return out
}

func fromTokens(tokens []string) []time.Weekday {
	var out []time.Weekday
	for _, tok := range tokens {
		if d, ok := ParseWeekday(tok); ok {
			out = append(out, d)
		}
	}
	return Normalize(out)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekday decodes a weekday token: a short or full English name in any
// case, or a numeric index 0 (Sunday) through 6 (Saturday).
func ParseWeekday(tok string) (time.Weekday, bool) {
	tok = strings.ToLower(strings.TrimSpace(tok))
	if tok == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(tok); err == nil {
		if n >= 0 && n <= 6 {
			return time.Weekday(n), true
		}
		return 0, false
	}
	if len(tok) > 3 {
		tok = tok[:3]
	}
	d, ok := weekdayNames[tok]
	return d, ok
}
