package app

import (
	"sort"
	"sync"
)

// ViewUseCase is the authority for one-time media consumption: which
// viewers have consumed which message. Membership only ever grows;
// there is no un-view operation.
type ViewUseCase struct {
	mu    sync.Mutex
	views map[string]map[string]struct{}
}

// NewViewUseCase init view use case
func NewViewUseCase() *ViewUseCase {
	return &ViewUseCase{views: make(map[string]map[string]struct{})}
}

// MarkViewed records that viewerID consumed messageID. Marking twice
// has no additional effect. Returns the full viewer set after the mark
// and whether the set actually changed.
func (uc *ViewUseCase) MarkViewed(messageID, viewerID string) ([]string, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	set, ok := uc.views[messageID]
	if !ok {
		set = make(map[string]struct{})
		uc.views[messageID] = set
	}
	_, seen := set[viewerID]
	set[viewerID] = struct{}{}
	return viewerList(set), !seen
}

// HasViewed reports whether viewerID already consumed messageID.
func (uc *ViewUseCase) HasViewed(messageID, viewerID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	_, ok := uc.views[messageID][viewerID]
	return ok
}

// Viewers returns the viewer set of messageID.
func (uc *ViewUseCase) Viewers(messageID string) []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return viewerList(uc.views[messageID])
}

// Forget drops the view sets of evicted messages. Only whole-room
// eviction calls this; a live message's set never shrinks.
func (uc *ViewUseCase) Forget(messageIDs []string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	for _, id := range messageIDs {
		delete(uc.views, id)
	}
}

func viewerList(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
