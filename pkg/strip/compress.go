package strip

import (
	"context"
	"slices"
)

// ProgressFunc receives the share of input consumed so far, in percent [0, 100].
type ProgressFunc func(percent int)

// Options controls a compression run.
type Options struct {
	// Progress is called before each triangle and once more with 100 when the
	// pass completes. May be nil.
	Progress ProgressFunc

	// LegacyTail reproduces the original tail lookup, which read one slot past
	// the end of the strip. With it set, tail attachment only succeeds for
	// degenerate triangles.
	LegacyTail bool
}

// Result is the outcome of a compression run.
type Result struct {
	Strips []Strip
	Stats  Stats
}

// Compressor builds strips from a single triangle list.
// It is not safe for concurrent use; create one per run.
type Compressor struct {
	opts     Options
	strips   []*builder
	faces    int
	attached int
}

// NewCompressor returns a compressor with the given options.
func NewCompressor(opts Options) *Compressor {
	return &Compressor{opts: opts}
}

// Compress runs a full pass over indices. Each consecutive group of three is
// one triangle; a trailing group with fewer than three indices is ignored.
func Compress(indices []Index, opts Options) Result {
	res, _ := NewCompressor(opts).Run(context.Background(), indices)
	return res
}

// CompressContext is Compress with cancellation checked between triangles.
// A cancelled run returns ctx.Err() and no partial result.
func CompressContext(ctx context.Context, indices []Index, opts Options) (Result, error) {
	return NewCompressor(opts).Run(ctx, indices)
}

// Run compresses indices. The compressor must not be reused afterwards.
func (c *Compressor) Run(ctx context.Context, indices []Index) (Result, error) {
	done := ctx.Done()
	total := len(indices)

	for i := 0; i+3 <= total; i += 3 {
		if done != nil {
			select {
			case <-done:
				return Result{}, ctx.Err()
			default:
			}
		}

		c.report(i * 100 / total)
		c.add(Triangle{indices[i], indices[i+1], indices[i+2]})
	}

	if c.faces > 0 {
		c.report(100)
	}

	strips := make([]Strip, len(c.strips))
	for i, b := range c.strips {
		strips[i] = b.strip()
	}

	return Result{
		Strips: strips,
		Stats:  ComputeStats(strips, c.faces),
	}, nil
}

// Attached returns how many triangles extended an existing strip instead of
// starting a new one.
func (c *Compressor) Attached() int {
	return c.attached
}

func (c *Compressor) add(t Triangle) {
	c.faces++

	for _, b := range c.strips {
		if v, ok := Attach(t, b.head()); ok {
			b.prepend(v)
			c.attached++
			return
		}
		if v, ok := Attach(t, b.tail(c.opts.LegacyTail)); ok {
			b.append(v)
			c.attached++
			return
		}
	}

	c.strips = append(c.strips, newBuilder(t))
}

func (c *Compressor) report(percent int) {
	if c.opts.Progress != nil {
		c.opts.Progress(percent)
	}
}

// Attach tests whether t shares two vertices with a strip end and returns the
// remaining vertex to add at that end.
//
// The search only starts from v1 or v2. A triangle whose first match against
// end would be v3 never attaches, even if it shares an edge.
func Attach(t Triangle, end []Index) (Index, bool) {
	v1, v2, v3 := t[0], t[1], t[2]

	switch {
	case slices.Contains(end, v1):
		if slices.Contains(end, v2) {
			return v3, true
		}
		if slices.Contains(end, v3) {
			return v2, true
		}
		return 0, false
	case slices.Contains(end, v2):
		if slices.Contains(end, v3) {
			return v1, true
		}
		return 0, false
	default:
		return 0, false
	}
}
