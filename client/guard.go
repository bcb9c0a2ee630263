package client

import (
	"strings"
	"sync"
	"time"
)

// Surface is the editing region the guard protects. The real
// implementation wraps a contenteditable element; tests use a fake.
type Surface interface {
	Content() string
	SetContent(content string)
	Selection() (start, end int)
	SetSelection(start, end int)
	// EnforceTextDirection reasserts direction/formatting attributes
	// across all descendant nodes of the surface.
	EnforceTextDirection()
}

// Guard defends the editing surface against content loss from external
// mutation. It keeps a last-known-good content snapshot (updated on each
// confirmed local edit) and selection snapshot (updated on each selection
// change); a periodic reconciliation compares expected against observed
// and restores the snapshot if the surface went unexpectedly empty.
type Guard struct {
	surface  Surface
	interval time.Duration

	mu       sync.Mutex
	snapshot string
	selStart int
	selEnd   int

	stop chan struct{}
	once sync.Once
}

const defaultInterval = 2 * time.Second

func NewGuard(surface Surface, interval time.Duration) *Guard {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Guard{
		surface:  surface,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the reconciliation loop until Stop.
func (g *Guard) Start() {
	go func() {
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stop:
				return
			case <-ticker.C:
				g.Reconcile()
			}
		}
	}()
}

func (g *Guard) Stop() {
	g.once.Do(func() { close(g.stop) })
}

// RecordEdit snapshots the surface after a confirmed local edit.
func (g *Guard) RecordEdit() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshot = g.surface.Content()
}

// RecordSelection snapshots the current cursor/selection.
func (g *Guard) RecordSelection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selStart, g.selEnd = g.surface.Selection()
}

// ApplyRemoteContent installs content relayed from another participant.
// The remote value becomes the new expected state (last writer wins);
// direction attributes and the local cursor are restored afterwards so
// the local typing position survives the overwrite.
func (g *Guard) ApplyRemoteContent(content string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.surface.SetContent(content)
	g.snapshot = content
	g.surface.EnforceTextDirection()
	g.surface.SetSelection(g.selStart, g.selEnd)
}

// AfterFormatting restores the protective invariants after a local
// formatting command mutated the surface programmatically.
func (g *Guard) AfterFormatting() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshot = g.surface.Content()
	g.surface.EnforceTextDirection()
	g.surface.SetSelection(g.selStart, g.selEnd)
}

// Reconcile is the expected-vs-observed integrity check. Only one
// failure mode is recognized: the surface went empty while the snapshot
// still holds content. Any other divergence is a legitimate edit the
// guard has not been told about yet.
func (g *Guard) Reconcile() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	observed := g.surface.Content()
	if strings.TrimSpace(observed) != "" || g.snapshot == "" {
		return false
	}

	g.surface.SetContent(g.snapshot)
	g.surface.EnforceTextDirection()
	g.surface.SetSelection(g.selStart, g.selEnd)
	return true
}
