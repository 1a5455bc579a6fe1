package wireproto

import (
	"fmt"
	"io"
	"time"
)

// Tracer writes a one-line-per-message record of everything sent and
// received on a Frontend, in the spirit of libpq's PQtrace but condensed to
// a timestamp, a direction (F or B) and the message's Go type rather than a
// full field dump.
type Tracer struct {
	w io.Writer
}

func (t *Tracer) traceFrontend(msg FrontendMessage) {
	fmt.Fprintf(t.w, "%s\tF\t%T\n", time.Now().Format("15:04:05.000000"), msg)
}

func (t *Tracer) traceBackend(msg BackendMessage) {
	fmt.Fprintf(t.w, "%s\tB\t%T\n", time.Now().Format("15:04:05.000000"), msg)
}
