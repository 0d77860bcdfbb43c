package domain

import (
	"fmt"
	"math"
	"sync/atomic"
)

// ProgressFunc receives cumulative bytes written and the expected total
type ProgressFunc func(written, total int64)

// TransferProgress is a point-in-time view of a transfer
type TransferProgress struct {
	BytesWritten int64   `json:"bytes_written"`
	TotalBytes   int64   `json:"total_bytes"`
	Fraction     float64 `json:"fraction"`
}

// Progress is the shared transfer counter. The downloader writes it and
// display pollers read it; it carries no behavior beyond arithmetic.
type Progress struct {
	written atomic.Int64
	total   atomic.Int64
}

// NewProgress creates a progress counter with the placeholder total of 1
func NewProgress() *Progress {
	p := &Progress{}
	p.total.Store(1)
	return p
}

// Update sets the absolute byte counts. It matches ProgressFunc.
func (p *Progress) Update(written, total int64) {
	p.written.Store(written)
	p.total.Store(max(total, 1))
}

// Increase adds delta to the bytes written, for callers that learn the
// total only after some bytes have already moved.
func (p *Progress) Increase(delta, total int64) {
	p.written.Add(delta)
	p.total.Store(max(total, 1))
}

// Reset prepares the counter for a new transfer
func (p *Progress) Reset() {
	p.written.Store(0)
	p.total.Store(1)
}

// Snapshot returns the current state
func (p *Progress) Snapshot() TransferProgress {
	written := p.written.Load()
	total := max(p.total.Load(), 1)
	fraction := float64(written) / float64(total)
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	return TransferProgress{
		BytesWritten: written,
		TotalBytes:   total,
		Fraction:     fraction,
	}
}

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// FormatSize renders a byte count with binary units, e.g. "1.50 MB"
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}
	group := int(math.Log10(float64(bytes)) / math.Log10(1024))
	if group >= len(sizeUnits) {
		group = len(sizeUnits) - 1
	}
	return fmt.Sprintf("%.2f %s", float64(bytes)/math.Pow(1024, float64(group)), sizeUnits[group])
}
