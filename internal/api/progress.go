package api

import (
	"io"
	"math"
)

// ProgressFunc receives the rounded share of file bytes sent so far.
type ProgressFunc func(percent int)

// maxTransferPercent keeps 100 reserved for a confirmed upload.
const maxTransferPercent = 99

type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	last   int
	report ProgressFunc
}

func newProgressReader(r io.Reader, total int64, report ProgressFunc) io.Reader {
	if report == nil || total <= 0 {
		return r
	}
	return &progressReader{r: r, total: total, report: report}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		if pct := transferPercent(p.sent, p.total); pct > p.last {
			p.last = pct
			p.report(pct)
		}
	}
	return n, err
}

func transferPercent(sent, total int64) int {
	pct := int(math.Round(float64(sent) * 100 / float64(total)))
	if pct > maxTransferPercent {
		return maxTransferPercent
	}
	if pct < 0 {
		return 0
	}
	return pct
}
