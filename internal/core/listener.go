package core

// Listener receives the structural notifications of the tree. Rows are
// positions below parent; ranges are inclusive. All calls happen on the
// goroutine driving Step.
type Listener interface {
	RowsAboutToBeInserted(parent ItemID, first, last int)
	RowsInserted(parent ItemID, first, last int)
	RowsAboutToBeRemoved(parent ItemID, first, last int)
	RowsRemoved(parent ItemID, first, last int)

	// LayoutChanged means any cached row positions are stale.
	LayoutChanged()

	DataChanged(id ItemID)

	// ExpandRequested asks the view to expand id.
	ExpandRequested(id ItemID)

	CurrentItemChanged(id ItemID)

	StatusMessage(msg string)
	JobBatchStarted()
	JobBatchTerminated()
}

// NopListener ignores everything. Embed it to implement a subset.
type NopListener struct{}

func (NopListener) RowsAboutToBeInserted(ItemID, int, int) {}
func (NopListener) RowsInserted(ItemID, int, int)          {}
func (NopListener) RowsAboutToBeRemoved(ItemID, int, int)  {}
func (NopListener) RowsRemoved(ItemID, int, int)           {}
func (NopListener) LayoutChanged()                         {}
func (NopListener) DataChanged(ItemID)                     {}
func (NopListener) ExpandRequested(ItemID)                 {}
func (NopListener) CurrentItemChanged(ItemID)              {}
func (NopListener) StatusMessage(string)                   {}
func (NopListener) JobBatchStarted()                       {}
func (NopListener) JobBatchTerminated()                    {}
