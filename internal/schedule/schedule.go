// Package schedule parses and evaluates the report-schedule mini-language:
// semicolon-separated "DESTS,INTERVAL[,OFFSET]" definitions, one per
// reporter tracker slot.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NotYet is the sentinel Outlets returns when a slot has not reached its
// next-fire time.
const NotYet = ""

type slot struct {
	outlets string
	interval time.Duration
	nextFire time.Time
}

// Schedule holds one or more parsed slots and evaluates them against wall
// time.
type Schedule struct {
	slots []slot
}

// Parse parses a schedule string of the form "DESTS,INTERVAL[,OFFSET][;…]".
// now is the reference time new slots' first next-fire is computed from.
func Parse(spec string, now time.Time) (*Schedule, error) {
	var sc Schedule
	for _, part := range strings.Split(spec, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ",")
		if len(fields) < 2 || len(fields) > 3 {
			return nil, fmt.Errorf("schedule: invalid slot %q", part)
		}
		dests := strings.TrimSpace(fields[0])
		if dests == "" {
			return nil, fmt.Errorf("schedule: empty destination list in %q", part)
		}
		for _, c := range dests {
			if c != 'c' {
				return nil, fmt.Errorf("schedule: unknown destination code %q in %q", c, part)
			}
		}
		intervalSec, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
		if err != nil || intervalSec <= 0 {
			return nil, fmt.Errorf("schedule: invalid interval in %q", part)
		}
		var offsetSec float64
		if len(fields) == 3 {
			offsetSec, err = strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
			if err != nil {
				return nil, fmt.Errorf("schedule: invalid offset in %q", part)
			}
		}
		interval := time.Duration(intervalSec * float64(time.Second))
		offset := time.Duration(offsetSec * float64(time.Second))
		sc.slots = append(sc.slots, slot{
			outlets: dests,
			interval: interval,
			nextFire: firstFireAfter(now, interval, offset),
		})
	}
	if len(sc.slots) == 0 {
		return nil, fmt.Errorf("schedule: no slots parsed from %q", spec)
	}
	return &sc, nil
}

// firstFireAfter returns the smallest time of the form offset + k*interval
// (k >= 0, measured from now) that is strictly after now: the slot's first
// scheduled fire. A slot with offset 0 therefore fires first at
// now+interval, not immediately at now; a slot with 0 < offset < interval
// fires first at now+offset, per spec.md §8 scenario 5.
func firstFireAfter(now time.Time, interval, offset time.Duration) time.Time {
	candidate := now.Add(offset)
	if candidate.After(now) {
		return candidate
	}
	behind := now.Sub(candidate)
	periods := int64(behind/interval) + 1
	return candidate.Add(time.Duration(periods) * interval)
}

// Parallelism returns the number of schedule slots.
func (sc *Schedule) Parallelism() int { return len(sc.slots) }

// Outlets returns slot i's destination-code string if now has reached its
// next-fire time, or NotYet otherwise.
func (sc *Schedule) Outlets(i int, now time.Time) string {
	s := &sc.slots[i]
	if now.Before(s.nextFire) {
		return NotYet
	}
	return s.outlets
}

// Reset advances slot i's next-fire time to now or later, catching up by
// whole interval multiples: ceil((now − next_fire)/interval)·interval (one
// interval when now is not past the next-fire time).
func (sc *Schedule) Reset(i int, now time.Time) {
	s := &sc.slots[i]
	behind := now.Sub(s.nextFire)
	if behind <= 0 {
		s.nextFire = s.nextFire.Add(s.interval)
		return
	}
	periods := int64(behind / s.interval)
	if behind%s.interval != 0 {
		periods++
	}
	s.nextFire = s.nextFire.Add(time.Duration(periods) * s.interval)
}

// Duration returns slot i's configured interval.
func (sc *Schedule) Duration(i int) time.Duration { return sc.slots[i].interval }
