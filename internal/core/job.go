package core

// Pass is a phase of a view item job.
type Pass int

const (
	Pass1Fill Pass = iota
	Pass1Cleanup
	Pass1Update
	Pass2
	Pass3
	Pass4
	Pass5
	passDone
)

func (p Pass) String() string {
	switch p {
	case Pass1Fill:
		return "fill"
	case Pass1Cleanup:
		return "cleanup"
	case Pass1Update:
		return "update"
	case Pass2:
		return "threading"
	case Pass3:
		return "subject-threading"
	case Pass4:
		return "grouping"
	case Pass5:
		return "resort"
	default:
		return "done"
	}
}

// viewItemJob is one queued unit of incremental work. Fill jobs cover the
// storage rows [startIndex, endIndex]; cleanup and update jobs own a list
// of invariant handles instead. currentIndex is the next position to process
// within the current pass.
type viewItemJob struct {
	pass Pass

	startIndex   int
	currentIndex int
	endIndex     int

	invariants []*InvariantIndex

	timing       jobTiming
	disconnectUI bool
	started      bool
}

func newFillJob(start, end int, timing jobTiming) *viewItemJob {
	return &viewItemJob{
		pass:         Pass1Fill,
		startIndex:   start,
		currentIndex: start,
		endIndex:     end,
		timing:       timing,
	}
}

func newListJob(pass Pass, invariants []*InvariantIndex, timing jobTiming) *viewItemJob {
	return &viewItemJob{
		pass:       pass,
		invariants: invariants,
		endIndex:   len(invariants) - 1,
		timing:     timing,
	}
}

// isFill reports whether the job still walks storage rows.
func (j *viewItemJob) isFill() bool { return j.pass == Pass1Fill }

// inPass1 reports whether the job has not left its entry pass yet.
func (j *viewItemJob) inPass1() bool {
	return j.pass == Pass1Fill || j.pass == Pass1Cleanup || j.pass == Pass1Update
}

// remaining is the number of unprocessed rows of a fill job.
func (j *viewItemJob) remaining() int {
	if !j.isFill() {
		return 0
	}
	return j.endIndex - j.currentIndex + 1
}

// canAbsorb reports whether rows inserted at from fall into the unprocessed
// range of a fill job, so that simply extending the range covers them. Rows
// appended right after the range are only absorbed by the tail job.
func (j *viewItemJob) canAbsorb(from int, isTail bool) bool {
	if !j.isFill() || from < j.currentIndex {
		return false
	}
	if from <= j.endIndex {
		return true
	}
	return isTail && from == j.endIndex+1
}

// shift moves the cursors of a fill job past count rows inserted at from.
func (j *viewItemJob) shift(from, count int) {
	if !j.isFill() {
		return
	}
	j.startIndex = shiftIfAtOrAfter(j.startIndex, from, count)
	j.currentIndex = shiftIfAtOrAfter(j.currentIndex, from, count)
	j.endIndex = shiftIfAtOrAfter(j.endIndex, from, count)
}

// rowsRemoved adjusts a fill job for count rows removed at from. Removed
// unprocessed rows are simply dropped.
func (j *viewItemJob) rowsRemoved(from, count int) {
	if !j.isFill() {
		return
	}
	to := from + count - 1
	j.startIndex = adjustForRemoval(j.startIndex, from, to)
	j.currentIndex = adjustForRemoval(j.currentIndex, from, to)
	j.endIndex = adjustForRemoval(j.endIndex+1, from, to) - 1
}

func shiftIfAtOrAfter(v, from, count int) int {
	if v >= from {
		return v + count
	}
	return v
}

// adjustForRemoval maps a position across the removal of [from, to]: a
// position inside collapses to from, later ones move back.
func adjustForRemoval(v, from, to int) int {
	switch {
	case v < from:
		return v
	case v <= to:
		return from
	default:
		return v - (to - from + 1)
	}
}
