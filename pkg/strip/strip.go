// Package strip converts triangle lists into triangle strips.
//
// The compressor is a greedy single pass: every triangle is tested against the
// head and then the tail of each strip built so far, in creation order, and
// joins the first strip that shares an edge with it. A triangle that fits
// nowhere starts a new strip. The result is not optimal; scan order is part of
// the observable behavior.
package strip

// Index is a vertex index into the mesh's shared vertex arrays.
type Index = uint32

// Triangle is a vertex triple in input order (v1, v2, v3).
type Triangle [3]Index

// Strip is a sequence of indices where every window of three encodes one triangle.
type Strip []Index

// Len returns the number of indices in the strip.
func (s Strip) Len() int {
	return len(s)
}

// Head returns the first two indices.
func (s Strip) Head() [2]Index {
	return [2]Index{s[0], s[1]}
}

// Tail returns the last two indices.
func (s Strip) Tail() [2]Index {
	return [2]Index{s[len(s)-2], s[len(s)-1]}
}

// Triangles decodes the strip into its overlapping windows.
// Winding alternates between windows and is not normalized.
func (s Strip) Triangles() []Triangle {
	if len(s) < 3 {
		return nil
	}
	tris := make([]Triangle, 0, len(s)-2)
	for i := 0; i+2 < len(s); i++ {
		tris = append(tris, Triangle{s[i], s[i+1], s[i+2]})
	}
	return tris
}

// Flatten joins strips into a single index buffer, separating strips with
// the primitive restart index.
func Flatten(strips []Strip, restart Index) []Index {
	if len(strips) == 0 {
		return nil
	}

	n := len(strips) - 1
	for _, s := range strips {
		n += len(s)
	}

	out := make([]Index, 0, n)
	for i, s := range strips {
		if i > 0 {
			out = append(out, restart)
		}
		out = append(out, s...)
	}
	return out
}

// builder is a strip under construction. Prepended indices are kept reversed
// in front so both ends grow in amortized constant time.
type builder struct {
	front []Index
	back  []Index
}

func newBuilder(t Triangle) *builder {
	return &builder{back: []Index{t[0], t[1], t[2]}}
}

func (b *builder) len() int {
	return len(b.front) + len(b.back)
}

func (b *builder) at(i int) Index {
	if i < len(b.front) {
		return b.front[len(b.front)-1-i]
	}
	return b.back[i-len(b.front)]
}

func (b *builder) prepend(v Index) {
	b.front = append(b.front, v)
}

func (b *builder) append(v Index) {
	b.back = append(b.back, v)
}

func (b *builder) head() []Index {
	return []Index{b.at(0), b.at(1)}
}

// tail returns the last two indices. In legacy mode the first slot mirrors a
// read past the end of the strip, which never matches a vertex, so only the
// last index takes part in the membership test.
func (b *builder) tail(legacy bool) []Index {
	n := b.len()
	if legacy {
		return []Index{b.at(n - 1)}
	}
	return []Index{b.at(n - 2), b.at(n - 1)}
}

func (b *builder) strip() Strip {
	s := make(Strip, 0, b.len())
	for i := len(b.front) - 1; i >= 0; i-- {
		s = append(s, b.front[i])
	}
	return append(s, b.back...)
}
