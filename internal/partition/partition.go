// Package partition splits a row range of a sliced frame into contiguous,
// slice-aligned groups of roughly equal work.
package partition

import (
	"github.com/hupe1980/dframe/rowmask"
)

// Unit is the part of one slice that falls inside a scanned range.
type Unit struct {
	Slice  int
	Begin  int // first global row
	End    int // one past the last global row
	Weight int // rows selected in [Begin, End)
}

// Group is a run of consecutive units handled by one worker.
type Group struct {
	Units  []Unit
	Weight int
}

// Begin returns the first row of the group.
func (g Group) Begin() int { return g.Units[0].Begin }

// End returns one past the last row of the group.
func (g Group) End() int { return g.Units[len(g.Units)-1].End }

// Units cuts [begin, end) at multiples of capacity. With a mask, units
// without a selected row are dropped and Weight counts selected rows only.
func Units(begin, end, capacity int, mask *rowmask.Mask) []Unit {
	if begin >= end || capacity <= 0 {
		return nil
	}
	units := make([]Unit, 0, (end-begin)/capacity+2)
	for b := begin; b < end; {
		slice := b / capacity
		e := min((slice+1)*capacity, end)
		w := e - b
		if mask != nil {
			w = mask.CountRange(b, e)
		}
		if w > 0 {
			units = append(units, Unit{Slice: slice, Begin: b, End: e, Weight: w})
		}
		b = e
	}
	return units
}

// Split groups units into min(threads, len(units)) contiguous groups. Group g
// closes once the running weight reaches total*(g+1)/k, and every group gets
// at least one unit.
func Split(units []Unit, threads int) []Group {
	threads = max(threads, 1)
	k := min(threads, len(units))
	if k == 0 {
		return nil
	}

	total := 0
	for _, u := range units {
		total += u.Weight
	}

	groups := make([]Group, 0, k)
	var cur Group
	running := 0
	for i, u := range units {
		cur.Units = append(cur.Units, u)
		cur.Weight += u.Weight
		running += u.Weight

		g := len(groups)
		if g == k-1 {
			continue
		}
		remainingUnits := len(units) - (i + 1)
		remainingGroups := k - (g + 1)
		if running*k >= total*(g+1) || remainingUnits == remainingGroups {
			groups = append(groups, cur)
			cur = Group{}
		}
	}
	if len(cur.Units) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

// Plan is Split(Units(begin, end, capacity, mask), threads).
func Plan(begin, end, capacity, threads int, mask *rowmask.Mask) []Group {
	return Split(Units(begin, end, capacity, mask), threads)
}
