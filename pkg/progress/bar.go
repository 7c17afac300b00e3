package progress

import (
	"fmt"
	"io"
	"strings"

	"github.com/textsumlab/sumpipe/pkg/units"
)

// Bar is a single progress row owned by a MultiBar.
type Bar struct {
	Name      string
	Total     int64 // total bytes, <=0 for indeterminate
	Completed int64
	Width     int
	Status    string
	Done      bool
	mb        *MultiBar
}

func (b *Bar) Write(w io.Writer) {
	if b.Width == 0 {
		b.Width = 40
	}
	var completed int
	var status string
	if b.Done {
		completed = b.Width
		status = b.Status
	} else if b.Total <= 0 {
		status = b.Status
	} else {
		completed = int(float64(b.Width) * float64(b.Completed) / float64(b.Total))
		if completed < 0 {
			completed = 0
		}
		if completed > b.Width {
			completed = b.Width
		}
		status = units.HumanSize(float64(b.Completed)) + "/" + units.HumanSize(float64(b.Total))
	}
	fmt.Fprintf(w, "%s [%s%s] %s\n",
		b.Name,
		strings.Repeat("+", completed),
		strings.Repeat("-", b.Width-completed),
		status,
	)
}

func (b *Bar) SetStatus(name, status string) {
	b.Name, b.Status = name, status
	b.notify()
}

func (b *Bar) SetProgress(completed, total int64) {
	b.Completed, b.Total = completed, total
	b.notify()
}

func (b *Bar) notify() {
	if b.mb != nil {
		b.mb.changed()
	}
}

// WrapReader reports read progress against total while the returned
// reader is consumed.
func (b *Bar) WrapReader(r io.Reader, total int64, onProcess, onComplete string) io.Reader {
	b.Total = total
	b.Status = onProcess
	b.notify()
	return &barReader{r: r, b: b, onComplete: onComplete}
}

type barReader struct {
	r          io.Reader
	b          *Bar
	onComplete string
}

func (r *barReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	r.b.Completed += int64(n)
	if r.b.Total > 0 && r.b.Completed >= r.b.Total {
		r.b.Status = r.onComplete
		r.b.Done = true
	}
	r.b.notify()
	return n, err
}

// WrapWriter reports write progress against total.
func (b *Bar) WrapWriter(w io.Writer, total int64, onProcess, onComplete string) io.Writer {
	b.Total = total
	b.Status = onProcess
	b.notify()
	return &barWriter{w: w, b: b, onComplete: onComplete}
}

type barWriter struct {
	w          io.Writer
	b          *Bar
	onComplete string
}

func (r *barWriter) Write(p []byte) (int, error) {
	n, err := r.w.Write(p)
	r.b.Completed += int64(n)
	if r.b.Total > 0 && r.b.Completed >= r.b.Total {
		r.b.Status = r.onComplete
		r.b.Done = true
	}
	r.b.notify()
	return n, err
}
