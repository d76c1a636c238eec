package scraper

import (
	"sync"
	"time"

	"github.com/go-rod/rod"
)

// Page retirement thresholds. A page is retired on the first one reached.
const (
	maxPageErrScore = 3.0
	maxPageUses     = 50
	maxPageAge      = 50 * time.Minute
)

type pageStats struct {
	errScore float64
	uses     int
	created  time.Time
}

// pageHealth scores pooled pages so that tabs which keep failing, or have
// served too long, are closed instead of reused.
//
// Scoring: success lowers the error score by 0.5 (min 0), failure raises
// it by 1.0.
type pageHealth struct {
	mu    sync.Mutex
	pages map[*rod.Page]*pageStats
}

func newPageHealth() *pageHealth {
	return &pageHealth{pages: make(map[*rod.Page]*pageStats)}
}

func (h *pageHealth) stats(p *rod.Page) *pageStats {
	st, ok := h.pages[p]
	if !ok {
		st = &pageStats{created: time.Now()}
		h.pages[p] = st
	}
	return st
}

// record scores one run on p.
func (h *pageHealth) record(p *rod.Page, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.stats(p)
	st.uses++
	if ok {
		st.errScore = max(0, st.errScore-0.5)
	} else {
		st.errScore++
	}
}

// retire reports whether p should be closed, forgetting it if so.
func (h *pageHealth) retire(p *rod.Page) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.stats(p)
	if st.errScore >= maxPageErrScore || st.uses >= maxPageUses || time.Since(st.created) >= maxPageAge {
		delete(h.pages, p)
		return true
	}
	return false
}
