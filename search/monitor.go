package search

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(criteria Criteria)
	AfterFilter(matched int)
	Finish(returned, total int)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ Criteria)    {}
func (n *noopMonitor) AfterFilter(_ int)   {}
func (n *noopMonitor) Finish(_, _ int)     {}
