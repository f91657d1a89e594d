// Package period decides whether a progress timestamp falls in the same
// accounting period as now. All calendar math happens in one canonical location.
package period

import (
	"fmt"
	"time"

	"github.com/bebokaka99/truyenviethay-backend/internal/model"
)

// DefaultLocation is UTC+07:00, the day boundary the service has always used.
var DefaultLocation = time.FixedZone("ICT", 7*60*60)

type Policy struct {
	loc *time.Location
}

func New(loc *time.Location) *Policy {
	if loc == nil {
		loc = DefaultLocation
	}
	return &Policy{loc: loc}
}

// LoadLocation resolves an IANA zone name. An empty name yields DefaultLocation.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return DefaultLocation, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load location %q: %w", name, err)
	}
	return loc, nil
}

func (p *Policy) Location() *time.Location {
	return p.loc
}

// SamePeriod reports whether last and now share a period for the given recurrence.
// A nil or zero last is never in the current period.
func (p *Policy) SamePeriod(last *time.Time, now time.Time, r model.Recurrence) bool {
	if last == nil || last.IsZero() {
		return false
	}

	switch r {
	case model.RecurrenceDaily:
		return p.SameDay(*last, now)
	case model.RecurrenceWeekly:
		return p.SameWeek(*last, now)
	default:
		return true
	}
}

func (p *Policy) SameDay(a, b time.Time) bool {
	ay, am, ad := a.In(p.loc).Date()
	by, bm, bd := b.In(p.loc).Date()
	return ay == by && am == bm && ad == bd
}

// SameWeek compares ISO weeks, which start on Monday.
func (p *Policy) SameWeek(a, b time.Time) bool {
	ay, aw := a.In(p.loc).ISOWeek()
	by, bw := b.In(p.loc).ISOWeek()
	return ay == by && aw == bw
}

// DaysBetween returns the number of calendar days from last to now.
func (p *Policy) DaysBetween(last, now time.Time) int {
	return int(p.midnight(now).Sub(p.midnight(last)).Hours() / 24)
}

func (p *Policy) midnight(t time.Time) time.Time {
	y, m, d := t.In(p.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
