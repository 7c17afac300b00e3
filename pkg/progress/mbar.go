package progress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"
)

const DefaultConcurrent = 4

// MultiBar renders a set of progress bars to a terminal, redrawing in
// place. Bars run as an errgroup; Wait returns the first error.
type MultiBar struct {
	w     io.Writer
	width int

	mu              sync.Mutex
	bars            []*Bar
	lastWrittenRows int

	eg *errgroup.Group
}

func NewMultiBar(dest io.Writer, width int, concurrent int) *MultiBar {
	if concurrent <= 0 {
		concurrent = DefaultConcurrent
	}
	eg := &errgroup.Group{}
	eg.SetLimit(concurrent)
	return &MultiBar{w: dest, width: width, eg: eg}
}

func (m *MultiBar) changed() {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf := &bytes.Buffer{}
	// clear previously drawn rows
	if m.lastWrittenRows > 0 {
		fmt.Fprintf(buf, "\033[%dA\033[J", m.lastWrittenRows)
	}
	for _, b := range m.bars {
		b.Write(buf)
	}
	_, _ = m.w.Write(buf.Bytes())
	m.lastWrittenRows = len(m.bars)
}

func (m *MultiBar) Go(name string, initstatus string, fun func(b *Bar) error) {
	bar := &Bar{mb: m, Name: name, Status: initstatus, Width: m.width}
	m.mu.Lock()
	m.bars = append(m.bars, bar)
	m.mu.Unlock()
	m.changed()

	m.eg.Go(func() error {
		if err := fun(bar); err != nil {
			bar.Status = "failed"
			bar.notify()
			return err
		}
		bar.Done = true
		bar.notify()
		return nil
	})
}

func (m *MultiBar) Wait() error {
	return m.eg.Wait()
}
