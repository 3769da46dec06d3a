package window

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNew_RejectsEmptyRange(t *testing.T) {
	start := date(2021, 1, 1)
	for _, dir := range []Direction{Ascending, Descending} {
		_, err := New(start, start, dir)
		var rangeErr *InvalidRangeError
		assert.ErrorAs(t, err, &rangeErr, "direction %s", dir)
	}
}

func TestNew_RejectsInvertedRange(t *testing.T) {
	_, err := New(date(2021, 2, 1), date(2021, 1, 1), Descending)
	var rangeErr *InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
}

func TestNew_RejectsUnknownDirection(t *testing.T) {
	_, err := New(date(2021, 1, 1), date(2021, 2, 1), Direction("sideways"))
	var dirErr *InvalidDirectionError
	require.ErrorAs(t, err, &dirErr)
	assert.Contains(t, err.Error(), "sideways")
}

func TestSplitter_AscendingContiguousAndClamped(t *testing.T) {
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		count int
	}{
		{"single short window", date(2021, 1, 1), date(2021, 1, 3), 1},
		{"exact week", date(2021, 1, 1), date(2021, 1, 8), 1},
		{"partial last window", date(2021, 1, 1), date(2021, 1, 20), 3},
		{"year", date(2021, 1, 1), date(2022, 1, 1), 53},
		{"sub-second end", date(2021, 1, 1), date(2021, 1, 15).Add(time.Second), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.start, tt.end, Ascending)
			require.NoError(t, err)
			windows := s.Collect()
			require.Len(t, windows, tt.count)

			assert.True(t, windows[0].Start.Equal(tt.start))
			assert.True(t, windows[len(windows)-1].End.Equal(tt.end))
			for i, w := range windows {
				assert.True(t, w.Start.Before(w.End))
				assert.False(t, w.End.After(tt.end))
				assert.LessOrEqual(t, w.End.Sub(w.Start), 7*24*time.Hour)
				if i > 0 {
					assert.True(t, windows[i-1].End.Equal(w.Start), "window %d not contiguous", i)
				}
			}
		})
	}
}

func TestSplitter_Descending(t *testing.T) {
	start := date(2021, 1, 1)
	end := date(2021, 1, 20)
	s, err := New(start, end, Descending)
	require.NoError(t, err)

	windows := s.Collect()
	require.Len(t, windows, 3)

	assert.True(t, windows[0].Start.Equal(end))
	assert.True(t, windows[0].End.Equal(date(2021, 1, 13)))
	assert.True(t, windows[1].End.Equal(date(2021, 1, 6)))
	assert.True(t, windows[2].End.Equal(start))
	for i, w := range windows {
		assert.True(t, w.Start.After(w.End))
		if i > 0 {
			assert.True(t, windows[i-1].End.Equal(w.Start))
		}
	}
}

func TestSplitter_NextAfterExhaustion(t *testing.T) {
	s, err := New(date(2021, 1, 1), date(2021, 1, 2), Ascending)
	require.NoError(t, err)

	_, ok := s.Next()
	assert.True(t, ok)
	_, ok = s.Next()
	assert.False(t, ok)
	_, ok = s.Next()
	assert.False(t, ok)
}

func TestSplitter_AllStopsEarly(t *testing.T) {
	s, err := New(date(2021, 1, 1), date(2021, 3, 1), Ascending)
	require.NoError(t, err)

	n := 0
	for range s.All() {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)

	w, ok := s.Next()
	require.True(t, ok)
	assert.True(t, w.Start.Equal(date(2021, 1, 15)))
}

func TestWindow_Bounds(t *testing.T) {
	w := Window{Start: date(2021, 1, 8), End: date(2021, 1, 1)}
	assert.True(t, w.Lower().Equal(date(2021, 1, 1)))
	assert.True(t, w.Upper().Equal(date(2021, 1, 8)))
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("desc")
	require.NoError(t, err)
	assert.Equal(t, Descending, d)

	_, err = ParseDirection("up")
	assert.Error(t, err)
}
