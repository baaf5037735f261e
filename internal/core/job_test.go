package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestViewItemJob_CanAbsorb(t *testing.T) {
	j := newFillJob(10, 20, jobTiming{})
	j.currentIndex = 15

	tests := []struct {
		name string
		from int
		tail bool
		want bool
	}{
		{"before cursor", 12, true, false},
		{"at cursor", 15, false, true},
		{"inside range", 18, false, true},
		{"at end", 20, false, true},
		{"right after end, not tail", 21, false, false},
		{"right after end, tail", 21, true, true},
		{"far after end", 30, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, j.canAbsorb(tt.from, tt.tail))
		})
	}

	list := newListJob(Pass1Cleanup, nil, jobTiming{})
	assert.False(t, list.canAbsorb(0, true))
}

func TestViewItemJob_Shift(t *testing.T) {
	j := newFillJob(10, 20, jobTiming{})
	j.currentIndex = 15

	j.shift(12, 3)
	assert.Equal(t, 10, j.startIndex)
	assert.Equal(t, 18, j.currentIndex)
	assert.Equal(t, 23, j.endIndex)

	j.shift(0, 2)
	assert.Equal(t, 12, j.startIndex)
	assert.Equal(t, 20, j.currentIndex)
	assert.Equal(t, 25, j.endIndex)
	assert.Equal(t, 6, j.remaining())
}

func TestViewItemJob_RowsRemoved(t *testing.T) {
	tests := []struct {
		name            string
		from, count     int
		cur, end, start int
	}{
		{"before the job", 0, 5, 10, 15, 5},
		{"processed rows", 11, 3, 12, 17, 10},
		{"unprocessed rows", 17, 2, 15, 18, 10},
		{"straddling the cursor", 14, 4, 14, 16, 10},
		{"tail of the range", 18, 10, 15, 17, 10},
		{"after the job", 25, 3, 15, 20, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := newFillJob(10, 20, jobTiming{})
			j.currentIndex = 15
			j.rowsRemoved(tt.from, tt.count)
			assert.Equal(t, tt.start, j.startIndex)
			assert.Equal(t, tt.cur, j.currentIndex)
			assert.Equal(t, tt.end, j.endIndex)
		})
	}
}

func TestViewItemJob_WholeRangeRemoved(t *testing.T) {
	j := newFillJob(10, 20, jobTiming{})
	j.rowsRemoved(5, 30)

	assert.Equal(t, 0, j.remaining())
	assert.True(t, j.inPass1())
}

func TestPass_String(t *testing.T) {
	assert.Equal(t, "fill", Pass1Fill.String())
	assert.Equal(t, "subject-threading", Pass3.String())
	assert.Equal(t, "done", passDone.String())
}
