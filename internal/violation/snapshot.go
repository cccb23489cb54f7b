package violation

import (
	"sort"
	"time"

	"github.com/examtrace/vigil/internal/domain"
)

// Snapshot is a copy of the aggregator state at one instant. Maps and
// slices are fresh on every call and safe to hold.
type Snapshot struct {
	// Active maps each source with open violations to its sorted kinds.
	Active map[string][]string

	Overlay domain.OverlayState

	// Total counts admissions since the aggregator started.
	Total int

	At time.Time
}

// ActiveAnywhere reports whether any kind is active on any source.
func (s Snapshot) ActiveAnywhere() bool {
	for _, kinds := range s.Active {
		if len(kinds) > 0 {
			return true
		}
	}
	return false
}

// Snapshot returns the current state.
func (a *Aggregator) Snapshot() Snapshot {
	now := a.now()

	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshotLocked(now)
}

// Dismiss hides the overlay for the cool-down window and remembers which
// kinds the candidate saw. A kind outside that set makes the overlay
// eligible again before the window ends.
func (a *Aggregator) Dismiss() {
	now := a.now()

	a.mu.Lock()
	a.dismissedAt = now
	a.dismissed = make(map[string]bool)
	for _, kinds := range a.active {
		for kind := range kinds {
			a.dismissed[kind] = true
		}
	}
	snap := a.snapshotLocked(now)
	a.mu.Unlock()

	select {
	case a.changes <- snap:
	default:
	}
}

func (a *Aggregator) snapshotLocked(now time.Time) Snapshot {
	active := make(map[string][]string, len(a.active))
	for source, kinds := range a.active {
		if len(kinds) == 0 {
			continue
		}
		list := make([]string, 0, len(kinds))
		for kind := range kinds {
			list = append(list, kind)
		}
		sort.Strings(list)
		active[source] = list
	}

	return Snapshot{
		Active:  active,
		Overlay: a.overlayLocked(now, active),
		Total:   a.total,
		At:      now,
	}
}

// overlayLocked applies the visibility rule: some kind is active, and the
// last dismissal either aged out or predates a kind the candidate has not
// seen.
func (a *Aggregator) overlayLocked(now time.Time, active map[string][]string) domain.OverlayState {
	state := domain.OverlayState{DismissedAt: a.dismissedAt}

	union := make(map[string]bool)
	for _, kinds := range active {
		for _, kind := range kinds {
			union[kind] = true
		}
	}
	if len(union) == 0 {
		return state
	}

	state.Kinds = make([]string, 0, len(union))
	for kind := range union {
		state.Kinds = append(state.Kinds, kind)
	}
	sort.Strings(state.Kinds)
	state.Mode = overlayMode(active)

	if a.dismissedAt.IsZero() || now.Sub(a.dismissedAt) > a.config.DismissCooldown {
		state.Visible = true
		return state
	}
	for _, kind := range state.Kinds {
		if !a.dismissed[kind] {
			state.Visible = true
			return state
		}
	}

	return state
}

func overlayMode(active map[string][]string) string {
	primary := len(active[domain.SourcePrimary]) > 0
	secondary := len(active[domain.SourceSecondary]) > 0

	switch {
	case primary && secondary:
		return domain.OverlayModeBoth
	case secondary:
		return domain.OverlayModeSecondary
	default:
		return domain.OverlayModePrimary
	}
}
