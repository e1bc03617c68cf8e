package sandbox

import "bytes"

// cappedBuffer keeps the first limit bytes written to it and discards the
// rest. Writes always report success so the child never blocks or sees
// EPIPE on a full buffer. A non-positive limit keeps everything.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if b.limit > 0 {
		room := b.limit - b.buf.Len()
		if room < len(p) {
			b.truncated = true
			if room <= 0 {
				return n, nil
			}
			p = p[:room]
		}
	}
	b.buf.Write(p)
	return n, nil
}

func (b *cappedBuffer) Bytes() []byte { return b.buf.Bytes() }
