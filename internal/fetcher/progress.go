package fetcher

// ProgressStep is the minimum advance, in percentage points, between two
// emitted events.
const ProgressStep = 5

// ProgressEvent reports bytes received for one transfer.
type ProgressEvent struct {
	SourceURL string
	Bytes     int64
	Total     int64
	Percent   int
}

// ProgressFunc receives throttled progress events. It is called from the
// goroutine performing the transfer.
type ProgressFunc func(ProgressEvent)

// progressWriter counts bytes written through it and emits an event each
// time the percentage advances by ProgressStep or reaches 100. It emits
// nothing when the total is unknown.
type progressWriter struct {
	sourceURL string
	total     int64
	written   int64
	lastPct   int
	emit      ProgressFunc
}

func newProgressWriter(sourceURL string, total int64, emit ProgressFunc) *progressWriter {
	return &progressWriter{
		sourceURL: sourceURL,
		total:     total,
		emit:      emit,
	}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total <= 0 || p.emit == nil {
		return len(b), nil
	}

	pct := int(p.written * 100 / p.total)
	if pct > 100 {
		pct = 100
	}
	if pct-p.lastPct >= ProgressStep || (pct == 100 && p.lastPct != 100) {
		p.lastPct = pct
		p.emit(ProgressEvent{
			SourceURL: p.sourceURL,
			Bytes:     p.written,
			Total:     p.total,
			Percent:   pct,
		})
	}
	return len(b), nil
}
