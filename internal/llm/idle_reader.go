package llm

import (
	"context"
	"fmt"
	"io"
	"time"
)

// idleTimeoutReader wraps an io.Reader and fails a Read that takes longer
// than timeout to produce any bytes, distinguishing a stalled connection
// from a slow-but-alive one (spec: streaming calls must not hang forever
// waiting on a provider that stopped sending frames without closing).
type idleTimeoutReader struct {
	ctx     context.Context
	r       io.Reader
	timeout time.Duration
}

func newIdleTimeoutReader(ctx context.Context, r io.Reader, timeout time.Duration) io.Reader {
	return &idleTimeoutReader{ctx: ctx, r: r, timeout: timeout}
}

func (r *idleTimeoutReader) Read(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		n, err := r.r.Read(p)
		done <- result{n, err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.n, res.err
	case <-timer.C:
		return 0, fmt.Errorf("stream idle for %s: %w", r.timeout, io.ErrUnexpectedEOF)
	case <-r.ctx.Done():
		return 0, r.ctx.Err()
	}
}
