package domain

import "sync"

// DashboardQueryState holds the latest summary published for one dashboard
// view. Each refresh takes a sequence number from Begin; only the most
// recently issued sequence may publish.
type DashboardQueryState struct {
	mu        sync.Mutex
	issued    uint64
	published uint64
	summary   SummaryResponse
	hasResult bool
}

// Begin issues the next request sequence number.
func (s *DashboardQueryState) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Publish stores resp if seq is still the latest issued sequence and returns
// whether it was applied.
func (s *DashboardQueryState) Publish(seq uint64, resp SummaryResponse) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued || seq <= s.published {
		return false
	}
	s.published = seq
	s.summary = resp
	s.hasResult = true
	return true
}

// Latest returns the last published summary.
func (s *DashboardQueryState) Latest() (SummaryResponse, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, s.published, s.hasResult
}
