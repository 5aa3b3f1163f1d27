package models

import (
	"fmt"
	"time"
)

// Season identifies the part of the year a semester covers.
type Season string

const (
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonFall   Season = "FALL"
)

// Semester bounds one period of workshift accounting. All pools, profiles,
// shifts and instances hang off exactly one semester.
type Semester struct {
	ID              string     `db:"id" json:"id"`
	Season          Season     `db:"season" json:"season"`
	Year            int        `db:"year" json:"year"`
	Rate            float64    `db:"rate" json:"rate"`
	PolicyURL       string     `db:"policy_url" json:"policy_url"`
	StartDate       time.Time  `db:"start_date" json:"start_date"`
	EndDate         time.Time  `db:"end_date" json:"end_date"`
	PreferencesOpen bool       `db:"preferences_open" json:"preferences_open"`
	Current         bool       `db:"current" json:"current"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Label renders the human name, e.g. "Fall 2026".
func (s *Semester) Label() string {
	season := string(s.Season)
	if len(season) > 1 {
		season = season[:1] + toLower(season[1:])
	}
	return fmt.Sprintf("%s %d", season, s.Year)
}

func toLower(s string) string {
	out := []rune(s)
	for i, r := range out {
		if r >= 'A' && r <= 'Z' {
			out[i] = r + ('a' - 'A')
		}
	}
	return string(out)
}

// SemesterFilter defines filters supported by list endpoints.
type SemesterFilter struct {
	Season    Season
	Year      int
	Current   *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// CurrentSemesterResult carries the resolved current semester plus an
// inconsistency warning when more than one semester claims to be current.
// The most recently started one wins; the rest are reported, not fixed.
type CurrentSemesterResult struct {
	Semester *Semester `json:"semester"`
	Warning  string    `json:"warning,omitempty"`
	// ManagerEmails lists workshift manager contacts to surface alongside
	// the warning so members know who can repair the state.
	ManagerEmails []string `json:"manager_emails,omitempty"`
}

// YearSeason infers the semester a given day belongs to: January through
// mid-May is Spring, through mid-August Summer, the rest Fall. Days in
// the last weeks of December roll into the next year's Spring.
func YearSeason(day time.Time) (int, Season) {
	year := day.Year()
	switch {
	case day.Month() == time.December && day.Day() >= 16:
		return year + 1, SeasonSpring
	case day.Month() < time.April:
		return year, SeasonSpring
	case day.Month() < time.August:
		return year, SeasonSummer
	default:
		return year, SeasonFall
	}
}

// SeasonStartEnd returns conventional start and end dates for a semester,
// used to pre-fill the start form when explicit dates are not provided.
func SeasonStartEnd(year int, season Season) (time.Time, time.Time) {
	switch season {
	case SeasonSpring:
		return date(year, time.January, 20), date(year, time.May, 17)
	case SeasonSummer:
		return date(year, time.May, 25), date(year, time.August, 16)
	default:
		return date(year, time.August, 24), date(year, time.December, 20)
	}
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
