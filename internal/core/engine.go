package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/nhle/messagelist/internal/model"
)

// StepResult tells the scheduler whether more work is queued.
type StepResult int

const (
	StepCompleted StepResult = iota
	StepInterrupted
)

func (r StepResult) String() string {
	if r == StepCompleted {
		return "completed"
	}
	return "interrupted"
}

// PreSelectionMode picks the message made current once loading completes.
type PreSelectionMode int

const (
	PreSelectNone PreSelectionMode = iota
	PreSelectLastSelected
	PreSelectFirstUnread
	PreSelectNewestCentered
	PreSelectOldestCentered
)

var preSelectionNames = []enumName[PreSelectionMode]{
	{PreSelectNone, "none"},
	{PreSelectLastSelected, "last_selected"},
	{PreSelectFirstUnread, "first_unread"},
	{PreSelectNewestCentered, "newest"},
	{PreSelectOldestCentered, "oldest"},
}

func (m PreSelectionMode) String() string { return enumString(preSelectionNames, m) }

// ParsePreSelectionMode parses a pre-selection mode name.
func ParsePreSelectionMode(s string) (PreSelectionMode, error) {
	return enumParse(preSelectionNames, "pre-selection mode", s)
}

// PropertyChange is a bitmask of message properties touched by an update.
type PropertyChange uint32

const (
	DateChanged PropertyChange = 1 << iota
	MaxDateChanged
	ActionItemStatusChanged
	UnreadStatusChanged
	ImportantStatusChanged
	AttachmentStatusChanged
	FieldsChanged
)

// Options configures an Engine. Zero values pick the defaults.
type Options struct {
	Clock    Clock
	Logger   *logrus.Entry
	Listener Listener

	// Nil picks DefaultAggregation and DefaultSortOrder.
	Aggregation *Aggregation
	SortOrder   *SortOrder

	// Subject threading only accepts a parent whose date precedes the
	// reply by at least SubjectMinGap and at most SubjectMaxGap.
	SubjectMinGap time.Duration
	SubjectMaxGap time.Duration

	// IncrementalNotifications keeps per-row notifications even for the
	// BatchNoInteractivity fill strategy.
	IncrementalNotifications bool
}

// Default subject threading window.
const (
	DefaultSubjectMinGap = 120 * time.Second
	DefaultSubjectMaxGap = 6 * 7 * 24 * time.Hour
)

// Engine turns a flat StorageModel into a threaded, grouped and sorted tree,
// a bounded slice of work per Step. It is not safe for concurrent use: Step,
// the storage notifications and the query methods must all be called from
// the same goroutine.
type Engine struct {
	clock    Clock
	log      *logrus.Entry
	listener Listener
	collator *collate.Collator

	aggregation   Aggregation
	sortOrder     SortOrder
	filter        Filter
	minGap        time.Duration
	maxGap        time.Duration
	alwaysNotify  bool
	timingForTest *jobTiming

	storage     StorageModel
	useReceiver bool

	tree   *tree
	mapper *RowMapper
	jobs   []*viewItemJob

	// threading caches
	idCache      map[Digest]ItemID
	idDuplicates map[Digest][]ItemID
	pendingCache map[Digest]map[ItemID]struct{}
	subjectCache map[Digest][]ItemID

	groupsByLabel       map[string]ItemID
	groupsNeedingUpdate map[ItemID]struct{}

	// per job work lists, drained by the matching pass
	unassigned    []ItemID
	subjectQueue  []ItemID
	groupingQueue []ItemID

	uiDisconnected bool
	batchRunning   bool
	stepProcessed  int
	nextDelay      time.Duration
	today          time.Time

	currentItem       ItemID
	preSelectionMode  PreSelectionMode
	preSelectUniqueID string
	preSelectItem     ItemID
	firstUnreadItem   ItemID
	newestItem        ItemID
	oldestItem        ItemID
}

// New returns an idle engine with no storage attached.
func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = logrus.NewEntry(l)
	}
	if opts.Listener == nil {
		opts.Listener = NopListener{}
	}
	if opts.SubjectMinGap <= 0 {
		opts.SubjectMinGap = DefaultSubjectMinGap
	}
	if opts.SubjectMaxGap <= 0 {
		opts.SubjectMaxGap = DefaultSubjectMaxGap
	}
	agg, order := DefaultAggregation(), DefaultSortOrder()
	if opts.Aggregation != nil {
		agg = *opts.Aggregation
	}
	if opts.SortOrder != nil {
		order = *opts.SortOrder
	}
	e := &Engine{
		clock:        opts.Clock,
		log:          opts.Logger.WithField("component", "engine"),
		listener:     opts.Listener,
		collator:     collate.New(language.Und, collate.IgnoreCase, collate.Loose),
		aggregation:  agg,
		sortOrder:    order,
		minGap:       opts.SubjectMinGap,
		maxGap:       opts.SubjectMaxGap,
		alwaysNotify: opts.IncrementalNotifications,
		mapper:       NewRowMapper(),
	}
	e.tree = newTree(1)
	e.resetCaches()
	e.today = startOfDay(e.clock.Now())
	return e
}

// SetListener replaces the notification listener. A nil listener mutes
// notifications.
func (e *Engine) SetListener(l Listener) {
	if l == nil {
		l = NopListener{}
	}
	e.listener = l
}

// Aggregation returns the active aggregation.
func (e *Engine) Aggregation() Aggregation { return e.aggregation }

// SortOrder returns the active sort order.
func (e *Engine) SortOrder() SortOrder { return e.sortOrder }

// Storage returns the attached storage, or nil.
func (e *Engine) Storage() StorageModel { return e.storage }

// SetStorage switches to a new storage and rebuilds the tree from scratch.
// mode selects which message becomes current once the fill completes.
func (e *Engine) SetStorage(s StorageModel, mode PreSelectionMode) {
	if e.storage != nil {
		e.storage.Unsubscribe(e)
	}
	e.storage = s
	e.currentItem = NoItem
	if s != nil {
		s.Subscribe(e)
	}
	e.preSelectionMode = mode
	e.preSelectUniqueID = ""
	e.reload(false)
}

// SetPreSelection asks for the message with uniqueID to become current when
// loading completes, even if it has not been filled yet.
func (e *Engine) SetPreSelection(uniqueID string) {
	e.preSelectUniqueID = uniqueID
	e.preSelectionMode = PreSelectLastSelected
	e.preSelectItem = NoItem
	if id := e.findByUniqueID(uniqueID); id != NoItem {
		e.preSelectItem = id
	}
}

// SetAggregation changes grouping and threading and reloads.
func (e *Engine) SetAggregation(a Aggregation) {
	e.aggregation = a
	e.reload(true)
}

// SetSortOrder changes the sort order and reloads.
func (e *Engine) SetSortOrder(s SortOrder) {
	e.sortOrder = s
	e.reload(true)
}

// Reload drops all queued work and rebuilds the tree, keeping the current
// message current.
func (e *Engine) Reload() { e.reload(true) }

func (e *Engine) reload(keepCurrent bool) {
	if keepCurrent {
		if cur := e.tree.get(e.currentItem); cur != nil && cur.kind == KindMessage {
			e.preSelectUniqueID = cur.UniqueID()
			e.preSelectionMode = PreSelectLastSelected
		}
	}

	e.jobs = nil
	if e.batchRunning {
		e.batchRunning = false
		e.listener.JobBatchTerminated()
	}
	e.uiDisconnected = false
	e.tree = newTree(e.tree.nextBase())
	e.mapper.ModelReset()
	e.resetCaches()
	e.clearCurrentItem()
	e.preSelectItem = NoItem
	e.firstUnreadItem = NoItem
	e.newestItem = NoItem
	e.oldestItem = NoItem
	e.today = startOfDay(e.clock.Now())
	e.listener.LayoutChanged()

	if e.storage == nil {
		return
	}
	e.useReceiver = e.storage.ContainsOutboundMessages()
	e.storage.PrepareForScan()
	rows := e.storage.RowCount()
	e.log.WithFields(logrus.Fields{
		"storage":   e.storage.ID(),
		"rows":      rows,
		"grouping":  e.aggregation.Grouping,
		"threading": e.aggregation.Threading,
		"fill":      e.aggregation.FillViewStrategy,
		"preselect": e.preSelectionMode,
	}).Debug("Reloading view")
	if rows == 0 {
		return
	}
	e.enqueueInitialFill(rows)
}

// enqueueInitialFill splits the first fill according to the fill strategy.
func (e *Engine) enqueueInitialFill(rows int) {
	switch e.aggregation.FillViewStrategy {
	case FavorSpeed:
		e.jobs = append(e.jobs, newFillJob(0, rows-1, e.timing(jobTiming{250 * time.Millisecond, 0, 100})))
	case BatchNoInteractivity:
		j := newFillJob(0, rows-1, e.timing(jobTiming{60 * time.Second, 0, 100000}))
		j.disconnectUI = !e.alwaysNotify
		e.jobs = append(e.jobs, j)
	default:
		if rows > 3000 && !e.useReceiver {
			// newest rows first so the interesting part shows up quickly
			recent := max(1000, e.storage.InitialUnreadRowCountGuess())
			if recent < rows {
				e.jobs = append(e.jobs,
					newFillJob(rows-recent, rows-1, e.timing(jobTiming{200 * time.Millisecond, 20 * time.Millisecond, 100})),
					newFillJob(0, rows-recent-1, e.timing(jobTiming{100 * time.Millisecond, 50 * time.Millisecond, 10})),
				)
				return
			}
		}
		e.jobs = append(e.jobs, newFillJob(0, rows-1, e.timing(jobTiming{150 * time.Millisecond, 30 * time.Millisecond, 30})))
	}
}

// incrementalTiming is used for jobs created by live storage changes.
func (e *Engine) incrementalTiming() jobTiming {
	return e.timing(jobTiming{100 * time.Millisecond, 50 * time.Millisecond, 10})
}

func (e *Engine) timing(t jobTiming) jobTiming {
	if e.timingForTest != nil {
		return *e.timingForTest
	}
	return t
}

func (e *Engine) resetCaches() {
	e.idCache = make(map[Digest]ItemID)
	e.idDuplicates = make(map[Digest][]ItemID)
	e.pendingCache = make(map[Digest]map[ItemID]struct{})
	e.subjectCache = make(map[Digest][]ItemID)
	e.groupsByLabel = make(map[string]ItemID)
	e.groupsNeedingUpdate = make(map[ItemID]struct{})
	e.unassigned = nil
	e.subjectQueue = nil
	e.groupingQueue = nil
}

// Pending reports whether Step has work left.
func (e *Engine) Pending() bool { return len(e.jobs) > 0 }

// NextDelay is how long the driver should wait before the next Step.
func (e *Engine) NextDelay() time.Duration {
	if len(e.jobs) == 0 {
		return 0
	}
	return e.nextDelay
}

// Run steps the engine until the queue drains or ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	for e.Pending() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Step() == StepCompleted {
			return nil
		}
		if d := e.NextDelay(); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
	}
	return nil
}

// Step runs queued jobs until they are all done or the time slice of the
// current job runs out.
func (e *Engine) Step() StepResult {
	if len(e.jobs) == 0 {
		return StepCompleted
	}
	start := e.clock.Now()
	e.stepProcessed = 0
	if !e.batchRunning {
		e.batchRunning = true
		e.listener.JobBatchStarted()
	}

	for len(e.jobs) > 0 {
		job := e.jobs[0]
		if !job.started {
			e.startJob(job)
		}
		if e.runJob(job, start) == StepInterrupted {
			e.nextDelay = job.timing.idleInterval
			e.listener.StatusMessage(e.progressText(job))
			return StepInterrupted
		}
		e.finishJob(job)
		if len(e.jobs) > 0 && e.clock.Now().Sub(start) > job.timing.chunkTimeout {
			e.nextDelay = job.timing.idleInterval
			return StepInterrupted
		}
	}

	e.batchRunning = false
	e.applyPreSelection()
	e.listener.StatusMessage("Ready")
	e.listener.JobBatchTerminated()
	return StepCompleted
}

func (e *Engine) startJob(job *viewItemJob) {
	job.started = true
	if job.disconnectUI {
		e.uiDisconnected = true
	}
	e.log.WithFields(logrus.Fields{
		"pass":  job.pass,
		"start": job.startIndex,
		"end":   job.endIndex,
	}).Debug("Starting job")
}

func (e *Engine) finishJob(job *viewItemJob) {
	e.jobs = e.jobs[1:]
	e.unassigned = nil
	e.subjectQueue = nil
	e.groupingQueue = nil
	clear(e.groupsNeedingUpdate)
	if job.disconnectUI && e.uiDisconnected {
		e.uiDisconnected = false
		e.listener.LayoutChanged()
		e.applyDeferredExpansion()
	}
}

// runJob advances job through its passes. It returns StepInterrupted with
// the cursors saved when the slice budget runs out.
func (e *Engine) runJob(job *viewItemJob, start time.Time) StepResult {
	for job.pass != passDone {
		var r StepResult
		switch job.pass {
		case Pass1Fill:
			r = e.runPass1Fill(job, start)
		case Pass1Cleanup:
			r = e.runPass1Cleanup(job, start)
		case Pass1Update:
			r = e.runPass1Update(job, start)
		case Pass2:
			r = e.runPass2(job, start)
		case Pass3:
			r = e.runPass3(job, start)
		case Pass4:
			r = e.runPass4(job, start)
		case Pass5:
			r = e.runPass5(job, start)
		}
		if r == StepInterrupted {
			return r
		}
		e.advancePass(job)
	}
	return StepCompleted
}

// advancePass moves job to the next pass that has work.
func (e *Engine) advancePass(job *viewItemJob) {
	next := passDone
	switch job.pass {
	case Pass1Fill, Pass1Cleanup, Pass1Update:
		switch {
		case len(e.unassigned) > 0 && e.aggregation.Threading != NoThreading:
			next = Pass2
		case len(e.unassigned) > 0 || len(e.groupingQueue) > 0:
			e.groupingQueue = append(e.groupingQueue, e.unassigned...)
			e.unassigned = nil
			next = Pass4
		default:
			next = Pass5
		}
	case Pass2:
		switch {
		case len(e.subjectQueue) > 0:
			next = Pass3
		case len(e.groupingQueue) > 0:
			next = Pass4
		default:
			next = Pass5
		}
	case Pass3:
		if len(e.groupingQueue) > 0 {
			next = Pass4
		} else {
			next = Pass5
		}
	case Pass4:
		next = Pass5
	}
	job.pass = next
	job.currentIndex = 0
}

// checkpoint counts one processed element and reports whether the slice
// budget is spent. The clock is read every messageCheckCount elements only.
func (e *Engine) checkpoint(job *viewItemJob, start time.Time) bool {
	e.stepProcessed++
	n := max(job.timing.messageCheckCount, 1)
	if e.stepProcessed%n != 0 {
		return false
	}
	return e.clock.Now().Sub(start) > job.timing.chunkTimeout
}

func (e *Engine) progressText(job *viewItemJob) string {
	switch job.pass {
	case Pass1Fill:
		done := job.currentIndex - job.startIndex
		total := job.endIndex - job.startIndex + 1
		return fmt.Sprintf("Processed %d of %d", done, total)
	case Pass1Cleanup:
		return fmt.Sprintf("Removed %d of %d", job.currentIndex, len(job.invariants))
	case Pass1Update:
		return fmt.Sprintf("Updated %d of %d", job.currentIndex, len(job.invariants))
	case Pass2:
		return fmt.Sprintf("Threaded %d of %d", job.currentIndex, len(e.unassigned))
	case Pass3:
		return fmt.Sprintf("Threaded %d of %d by subject", job.currentIndex, len(e.subjectQueue))
	case Pass4:
		return fmt.Sprintf("Grouped %d of %d", job.currentIndex, len(e.groupingQueue))
	default:
		return "Updating view"
	}
}

// RowsInserted is the storage notification for rows [from, to] inserted.
func (e *Engine) RowsInserted(from, to int) {
	if e.storage == nil || to < from {
		return
	}
	count := to - from + 1
	e.mapper.ModelRowsInserted(from, count)

	absorbed := false
	for i, j := range e.jobs {
		if !absorbed && j.canAbsorb(from, i == len(e.jobs)-1) {
			j.endIndex += count
			absorbed = true
			continue
		}
		j.shift(from, count)
	}
	if !absorbed {
		e.jobs = append(e.jobs, newFillJob(from, to, e.incrementalTiming()))
	}
}

// RowsRemoved is the storage notification for rows [from, to] removed.
func (e *Engine) RowsRemoved(from, to int) {
	if e.storage == nil || to < from {
		return
	}
	count := to - from + 1
	invalidated := e.mapper.ModelRowsRemoved(from, count)
	for _, j := range e.jobs {
		j.rowsRemoved(from, count)
	}
	if len(invalidated) == 0 {
		return
	}
	if n := len(e.jobs); n > 0 && e.jobs[n-1].pass == Pass1Cleanup {
		tail := e.jobs[n-1]
		tail.invariants = append(tail.invariants, invalidated...)
		tail.endIndex = len(tail.invariants) - 1
		return
	}
	e.jobs = append(e.jobs, newListJob(Pass1Cleanup, invalidated, e.incrementalTiming()))
}

// DataChanged is the storage notification for rows [from, to] modified in
// place.
func (e *Engine) DataChanged(from, to int) {
	if e.storage == nil || to < from {
		return
	}
	handles := e.mapper.ModelIndexRowRangeToModelInvariantIndexList(from, to-from+1)
	if len(handles) == 0 {
		// not filled yet: the fill job will pick up the new data
		return
	}
	if n := len(e.jobs); n > 0 && e.jobs[n-1].pass == Pass1Update {
		tail := e.jobs[n-1]
		tail.invariants = append(tail.invariants, handles...)
		tail.endIndex = len(tail.invariants) - 1
		return
	}
	e.jobs = append(e.jobs, newListJob(Pass1Update, handles, e.incrementalTiming()))
}

// LayoutChanged is the storage notification for a reorder of its rows.
func (e *Engine) LayoutChanged() { e.reload(true) }

// Reset is the storage notification for a wholesale content change.
func (e *Engine) Reset() { e.reload(true) }

// HeaderDataChanged is the storage notification for changed column titles.
func (e *Engine) HeaderDataChanged() {
	e.listener.DataChanged(e.tree.root)
}

// CheckDayRollover rebuilds date based groups when the local day changed
// since the last fill. The owner of the clock calls it periodically.
func (e *Engine) CheckDayRollover() bool {
	today := startOfDay(e.clock.Now())
	if today.Equal(e.today) {
		return false
	}
	e.log.WithField("day", today.Format(time.DateOnly)).Debug("Day changed")
	e.today = today
	if e.aggregation.IsDateGrouping() && e.storage != nil {
		e.reload(true)
	}
	return true
}

// CurrentItem returns the current message, or NoItem.
func (e *Engine) CurrentItem() ItemID { return e.currentItem }

// SetCurrentItem makes id current. The engine keeps it current across
// reparenting and reloads.
func (e *Engine) SetCurrentItem(id ItemID) {
	if id != NoItem && e.tree.get(id) == nil {
		return
	}
	if id == e.currentItem {
		return
	}
	e.currentItem = id
	// an explicit choice wins over any pending pre-selection
	e.preSelectionMode = PreSelectNone
	e.listener.CurrentItemChanged(id)
}

func (e *Engine) clearCurrentItem() {
	if e.currentItem == NoItem {
		return
	}
	e.currentItem = NoItem
	e.listener.CurrentItemChanged(NoItem)
}

// checkPreSelection tracks pre-selection candidates while filling.
func (e *Engine) checkPreSelection(it *Item) {
	switch e.preSelectionMode {
	case PreSelectLastSelected:
		if e.preSelectUniqueID != "" && it.UniqueID() == e.preSelectUniqueID {
			e.preSelectItem = it.id
		}
	case PreSelectFirstUnread:
		if it.status.IsRead() {
			return
		}
		if cur := e.tree.get(e.firstUnreadItem); cur == nil || it.date.Before(cur.date) {
			e.firstUnreadItem = it.id
		}
	case PreSelectNewestCentered:
		if cur := e.tree.get(e.newestItem); cur == nil || it.date.After(cur.date) {
			e.newestItem = it.id
		}
	case PreSelectOldestCentered:
		if cur := e.tree.get(e.oldestItem); cur == nil || it.date.Before(cur.date) {
			e.oldestItem = it.id
		}
	}
}

// applyPreSelection makes the chosen candidate current once the queue
// drains, expanding its ancestors so it can be seen.
func (e *Engine) applyPreSelection() {
	var pick ItemID
	switch e.preSelectionMode {
	case PreSelectNone:
		return
	case PreSelectLastSelected:
		pick = e.preSelectItem
	case PreSelectFirstUnread:
		pick = e.firstUnreadItem
	case PreSelectNewestCentered:
		pick = e.newestItem
	case PreSelectOldestCentered:
		pick = e.oldestItem
	}
	it := e.tree.get(pick)
	if it == nil || !it.viewable {
		return
	}
	e.preSelectionMode = PreSelectNone
	e.preSelectUniqueID = ""
	for p := e.tree.get(it.parent); p != nil && p.kind != KindRoot; p = e.tree.get(p.parent) {
		p.expand = ExpandExecuted
		e.listener.ExpandRequested(p.id)
	}
	e.currentItem = it.id
	e.listener.CurrentItemChanged(it.id)
}

func (e *Engine) forgetPreSelection(id ItemID) {
	if e.preSelectItem == id {
		e.preSelectItem = NoItem
	}
	if e.firstUnreadItem == id {
		e.firstUnreadItem = NoItem
	}
	if e.newestItem == id {
		e.newestItem = NoItem
	}
	if e.oldestItem == id {
		e.oldestItem = NoItem
	}
}

func (e *Engine) findByUniqueID(uid string) ItemID {
	if uid == "" {
		return NoItem
	}
	var found ItemID
	e.tree.walk(e.tree.rootItem(), 0, func(it *Item, _ int) bool {
		if it.kind == KindMessage && it.msg.uniqueID == uid {
			found = it.id
			return false
		}
		return true
	})
	return found
}

// notifying reports whether structural changes below parent are reported.
func (e *Engine) notifying(parent *Item) bool {
	return parent.viewable && !e.uiDisconnected
}

// SetMessageStatus writes a new status for message id through to the
// storage. The storage reports the row as changed, and the update pass then
// refreshes the tree.
func (e *Engine) SetMessageStatus(id ItemID, status model.Status) bool {
	it := e.tree.get(id)
	if it == nil || it.kind != KindMessage || e.storage == nil {
		return false
	}
	row := e.StorageRow(id)
	if row < 0 {
		return false
	}
	e.storage.SetMessageItemStatus(it, row, status)
	return true
}
