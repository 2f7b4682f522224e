// Package navigator holds the view state shared by the app's screens: which
// tab is active, whether the side menu is open, and the scan result waiting
// to be shown in chat. State values are immutable; every transition returns
// a new State.
package navigator

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/vbonduro/skintell/internal/domain"
)

var (
	ErrUnknownTab  = errors.New("unknown tab")
	ErrUnknownPage = errors.New("unknown menu page")
)

type Tab int

const (
	TabHome Tab = iota
	TabScan
	TabChat
	TabShop
)

var tabNames = [...]string{"home", "scan", "chat", "shop"}

func (t Tab) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return fmt.Sprintf("tab(%d)", int(t))
	}
	return tabNames[t]
}

func (t Tab) Valid() bool {
	return t >= 0 && int(t) < len(tabNames)
}

// ParseTab accepts a tab name, case-insensitively.
func ParseTab(s string) (Tab, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range tabNames {
		if n == name {
			return Tab(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTab, s)
}

// Menu pages reachable from the side menu.
const (
	PageShop         = "shop"
	PageSubscription = "subscription"
)

// Handoff is a one-shot mailbox carrying a scan result to the chat view.
// Take returns the result the first time it is called and nothing after that,
// no matter how many State copies still reference the handoff.
type Handoff struct {
	mu       sync.Mutex
	result   domain.AnalysisResult
	consumed bool
}

func NewHandoff(result domain.AnalysisResult) *Handoff {
	return &Handoff{result: result}
}

func (h *Handoff) Take() (domain.AnalysisResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.consumed {
		return domain.AnalysisResult{}, false
	}
	h.consumed = true
	return h.result, true
}

func (h *Handoff) Consumed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consumed
}

type State struct {
	ActiveTab Tab
	MenuOpen  bool
	Pending   *Handoff
}

// Initial is the state of a freshly opened app: home tab, menu closed.
func Initial() State {
	return State{ActiveTab: TabHome}
}

// SelectTab has no guard conditions; any valid tab may be selected from any
// state.
func SelectTab(s State, tab Tab) (State, error) {
	if !tab.Valid() {
		return s, fmt.Errorf("%w: %d", ErrUnknownTab, int(tab))
	}
	s.ActiveTab = tab
	return s, nil
}

func OpenMenu(s State) State {
	s.MenuOpen = true
	return s
}

func CloseMenu(s State) State {
	s.MenuOpen = false
	return s
}

// MenuNavigate follows a side-menu entry. The menu closes for every known
// page; only the shop page has a tab of its own.
func MenuNavigate(s State, page string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(page)) {
	case PageShop:
		s.ActiveTab = TabShop
	case PageSubscription:
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownPage, page)
	}
	s.MenuOpen = false
	return s, nil
}

// CompleteScan queues result for the chat view and switches to it. A result
// still pending from an earlier scan is replaced.
func CompleteScan(s State, result domain.AnalysisResult) State {
	s.Pending = NewHandoff(result)
	s.ActiveTab = TabChat
	return s
}

// Drain takes the pending result, if one exists and has not been consumed,
// and clears the slot.
func Drain(s State) (State, *domain.AnalysisResult) {
	h := s.Pending
	s.Pending = nil
	if h == nil {
		return s, nil
	}
	result, ok := h.Take()
	if !ok {
		return s, nil
	}
	return s, &result
}
