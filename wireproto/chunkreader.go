package wireproto

import "io"

// frameReader delivers exactly n bytes per next call off of an underlying
// io.Reader, growing its own buffer on demand rather than pooling a fixed
// set of size tiers. A Frontend reads one frame at a time, so the extra
// machinery a busy server process needs to keep GC pressure down across
// many concurrent connections isn't pulling its weight here: one buffer
// per Frontend, grown to the largest frame seen so far and never shrunk,
// covers the startup/row/COPY traffic a client actually sees. The slice
// returned by next is only valid until the next call to next.
type frameReader struct {
	r      io.Reader
	buf    []byte
	rp, wp int
}

// newFrameReader creates a frameReader for r. bufSize <= 0 selects the
// default of 8192 bytes, matching the backend's own send buffer size.
func newFrameReader(r io.Reader, bufSize int) *frameReader {
	if bufSize <= 0 {
		bufSize = 8192
	}
	return &frameReader{r: r, buf: make([]byte, bufSize)}
}

func (f *frameReader) next(n int) ([]byte, error) {
	if f.rp == f.wp {
		f.rp, f.wp = 0, 0
	}

	if f.wp-f.rp >= n {
		buf := f.buf[f.rp : f.rp+n]
		f.rp += n
		return buf, nil
	}

	switch {
	case len(f.buf) < n:
		// Frame bigger than anything seen so far (a wide DataRow, a COPY
		// chunk): replace the buffer outright and keep it at this size.
		grown := make([]byte, n)
		f.wp = copy(grown, f.buf[f.rp:f.wp])
		f.buf = grown
		f.rp = 0
	case len(f.buf)-f.rp < n:
		// Current buffer is large enough but the unread tail sits too
		// close to the end to fit n more bytes; slide it to the front.
		f.wp = copy(f.buf, f.buf[f.rp:f.wp])
		f.rp = 0
	}

	need := n - (f.wp - f.rp)
	read, err := io.ReadAtLeast(f.r, f.buf[f.wp:], need)
	f.wp += read
	if err != nil {
		return nil, err
	}

	buf := f.buf[f.rp : f.rp+n]
	f.rp += n
	return buf, nil
}
