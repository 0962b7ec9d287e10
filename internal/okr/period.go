package okr

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

var (
	quarterPeriodRe = regexp.MustCompile(`^(\d{4})Q([1-4])$`)
	monthPeriodRe   = regexp.MustCompile(`^(\d{4})(0[1-9]|1[0-2])$`)
)

// Period is a parsed check-in period: either a quarter (YYYYQn) or a month
// (YYYYMM). Exactly one of Quarter and Month is non-zero.
type Period struct {
	Year    int
	Quarter int
	Month   int
}

// ParsePeriod validates and parses a period label.
func ParsePeriod(s string) (Period, error) {
	if m := quarterPeriodRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		return Period{Year: year, Quarter: q}, nil
	}
	if m := monthPeriodRe.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		return Period{Year: year, Month: month}, nil
	}
	return Period{}, fmt.Errorf("invalid period %q: want YYYYQn or YYYYMM", s)
}

// IsValidPeriod reports whether s is a well-formed period label.
func IsValidPeriod(s string) bool {
	_, err := ParsePeriod(s)
	return err == nil
}

func (p Period) String() string {
	if p.Quarter != 0 {
		return QuarterPeriod(p.Year, p.Quarter)
	}
	return MonthPeriod(p.Year, p.Month)
}

// QuarterPeriod formats a quarter label such as 2024Q3.
func QuarterPeriod(year, quarter int) string {
	return fmt.Sprintf("%04dQ%d", year, quarter)
}

// MonthPeriod formats a month label such as 202407.
func MonthPeriod(year, month int) string {
	return fmt.Sprintf("%04d%02d", year, month)
}

// CurrentQuarter returns the quarter label containing now.
func CurrentQuarter(now time.Time) string {
	return QuarterPeriod(now.Year(), (int(now.Month())-1)/3+1)
}

// PeriodUniverse lists every quarter and month of the year containing now and
// of the following year, sorted lexicographically.
func PeriodUniverse(now time.Time) []string {
	var periods []string
	for _, year := range []int{now.Year(), now.Year() + 1} {
		for q := 1; q <= 4; q++ {
			periods = append(periods, QuarterPeriod(year, q))
		}
		for m := 1; m <= 12; m++ {
			periods = append(periods, MonthPeriod(year, m))
		}
	}
	sort.Strings(periods)
	return periods
}

// SortCheckIns orders check-ins by period label. The sort is stable so equal
// labels keep their relative order.
func SortCheckIns(checkIns []CheckIn) {
	sort.SliceStable(checkIns, func(i, j int) bool {
		return checkIns[i].Period < checkIns[j].Period
	})
}

// UpsertCheckIn replaces the check-in for ci.Period, or appends ci when the
// period has none yet. The returned slice is a new allocation.
func UpsertCheckIn(checkIns []CheckIn, ci CheckIn) []CheckIn {
	out := append([]CheckIn(nil), checkIns...)
	for i := range out {
		if out[i].Period == ci.Period {
			out[i] = ci
			return out
		}
	}
	return append(out, ci)
}
