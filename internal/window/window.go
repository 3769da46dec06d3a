// Package window splits a time range into bounded, week-long sub-windows.
package window

import (
	"fmt"
	"iter"
	"time"
)

// Direction controls the order in which windows are produced.
type Direction string

const (
	// Ascending walks from the range start toward the range end.
	Ascending Direction = "asc"
	// Descending walks from the range end back toward the range start.
	Descending Direction = "desc"
)

// Step is the calendar length of a window in days.
const Step = 7

// Window is one sub-range. Start > End for descending walks.
type Window struct {
	Start time.Time
	End   time.Time
}

// InvalidRangeError is returned when the requested range is empty or inverted.
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid range: no issues after %s and before %s",
		e.Start.Format(time.DateTime), e.End.Format(time.DateTime))
}

// InvalidDirectionError is returned for an unrecognized direction.
type InvalidDirectionError struct {
	Value string
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("direction must be either `asc` or `desc`; `%s` not recognized", e.Value)
}

// ParseDirection converts a flag value to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Ascending, Descending:
		return Direction(s), nil
	default:
		return "", &InvalidDirectionError{Value: s}
	}
}

// Splitter lazily yields windows covering a range.
type Splitter struct {
	current time.Time
	end     time.Time
	sign    int
}

// New validates the range and returns a Splitter positioned at its first
// window. start must be strictly before end regardless of direction; for a
// descending walk the bounds are swapped so iteration begins at end.
func New(start, end time.Time, dir Direction) (*Splitter, error) {
	if !start.Before(end) {
		return nil, &InvalidRangeError{Start: start, End: end}
	}
	switch dir {
	case Ascending:
		return &Splitter{current: start, end: end, sign: 1}, nil
	case Descending:
		return &Splitter{current: end, end: start, sign: -1}, nil
	default:
		return nil, &InvalidDirectionError{Value: string(dir)}
	}
}

// Next returns the next window, or false once the terminal bound is reached.
func (s *Splitter) Next() (Window, bool) {
	if s.current.Equal(s.end) {
		return Window{}, false
	}

	next := s.current.AddDate(0, 0, Step*s.sign)
	if (s.sign > 0 && next.After(s.end)) || (s.sign < 0 && next.Before(s.end)) {
		next = s.end
	}

	w := Window{Start: s.current, End: next}
	s.current = next
	return w, true
}

// All returns an iterator over the remaining windows.
func (s *Splitter) All() iter.Seq[Window] {
	return func(yield func(Window) bool) {
		for {
			w, ok := s.Next()
			if !ok || !yield(w) {
				return
			}
		}
	}
}

// Collect materializes the remaining windows.
func (s *Splitter) Collect() []Window {
	var out []Window
	for w := range s.All() {
		out = append(out, w)
	}
	return out
}

// Lower returns the earlier of the two bounds.
func (w Window) Lower() time.Time {
	if w.End.Before(w.Start) {
		return w.End
	}
	return w.Start
}

// Upper returns the later of the two bounds.
func (w Window) Upper() time.Time {
	if w.End.Before(w.Start) {
		return w.Start
	}
	return w.End
}
