// Package timegrid computes the bookable hourly slots for a calendar date.
package timegrid

import (
	"fmt"
	"time"

	"github.com/jwalitptl/clinic-scheduler/internal/model"
)

// Block is an inclusive range of opening hours, on the hour.
type Block struct {
	From int
	To   int
}

// Schedule maps weekdays to opening blocks. A weekday with no blocks is closed.
type Schedule map[time.Weekday][]Block

var weekdayBlocks = []Block{{From: 8, To: 12}, {From: 13, To: 21}}

// DefaultSchedule is the clinic's opening hours: two blocks on weekdays, a
// morning block on Saturday, closed on Sunday.
var DefaultSchedule = Schedule{
	time.Monday:    weekdayBlocks,
	time.Tuesday:   weekdayBlocks,
	time.Wednesday: weekdayBlocks,
	time.Thursday:  weekdayBlocks,
	time.Friday:    weekdayBlocks,
	time.Saturday:  {{From: 8, To: 12}},
}

type Policy struct {
	schedule Schedule
}

func NewPolicy(schedule Schedule) *Policy {
	if schedule == nil {
		schedule = DefaultSchedule
	}
	return &Policy{schedule: schedule}
}

// LegalSlots returns the ascending, duplicate-free HH:MM slots for date. A
// date that does not parse yields no slots, same as a closed day.
func (p *Policy) LegalSlots(date string) []string {
	d, err := model.NormalizeDate(date)
	if err != nil {
		return []string{}
	}
	day, _ := time.Parse(model.DateLayout, d)

	var hours [24]bool
	for _, b := range p.schedule[day.Weekday()] {
		for h := b.From; h <= b.To && h < 24; h++ {
			if h >= 0 {
				hours[h] = true
			}
		}
	}

	slots := make([]string, 0, 24)
	for h, open := range hours {
		if open {
			slots = append(slots, fmt.Sprintf("%02d:00", h))
		}
	}
	return slots
}

// IsLegal reports whether tm is one of the legal slots for date.
func (p *Policy) IsLegal(date, tm string) bool {
	t, err := model.NormalizeTime(tm)
	if err != nil {
		return false
	}
	for _, s := range p.LegalSlots(date) {
		if s == t {
			return true
		}
	}
	return false
}

// LegalSlots applies DefaultSchedule.
func LegalSlots(date string) []string {
	return NewPolicy(nil).LegalSlots(date)
}
