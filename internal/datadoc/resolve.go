package datadoc

import (
	"strconv"
	"strings"
)

// Resolve looks up a dot-separated path in doc. It reports false when any
// segment is missing, when a segment indexes into a scalar, or when the path
// ends on a mapping or sequence. It never fails.
//
// Sequences are indexed by decimal segments, so "machines.0.name" reads the
// first element of machines.
func Resolve(doc Document, path string) (Scalar, bool) {
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		cur = step(cur, seg)
		if cur == nil {
			return Scalar{}, false
		}
	}
	s, ok := cur.(Scalar)
	return s, ok
}

func step(d Document, seg string) Document {
	switch v := d.(type) {
	case *Mapping:
		child, _ := v.Get(seg)
		return child
	case Sequence:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) || strconv.Itoa(i) != seg {
			return nil
		}
		return v[i]
	}
	return nil
}
