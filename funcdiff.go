package hijack

import (
	"reflect"

	"github.com/cockroachdb/errors"
)

type funcDifferences struct {
	In  []*argDifference
	Out []*argDifference
}

func (d *funcDifferences) Error() error {
	var errs []error
	for i, arg := range d.In {
		if arg != nil {
			errs = append(errs, errors.Newf("argument %d: %v != %v", i, arg.A, arg.B))
		}
	}
	for i, out := range d.Out {
		if out != nil {
			errs = append(errs, errors.Newf("output %d: %v != %v", i, out.A, out.B))
		}
	}

	return errors.Join(errs...)
}

type argDifference struct {
	A reflect.Type
	B reflect.Type
}

// diffFuncs compares the signatures of two funcs position by position. It
// returns nil when they are identical. A missing argument is a nil Type.
func diffFuncs(a, b reflect.Value) *funcDifferences {
	at := a.Type()
	bt := b.Type()

	diff := funcDifferences{
		In:  diffTypes(at.NumIn(), bt.NumIn(), at.In, bt.In),
		Out: diffTypes(at.NumOut(), bt.NumOut(), at.Out, bt.Out),
	}
	if diff.In == nil && diff.Out == nil {
		return nil
	}
	return &diff
}

// diffTypes returns one entry per position, nil where the types match, or
// nil altogether if nothing differs.
func diffTypes(na, nb int, a, b func(int) reflect.Type) []*argDifference {
	diffs := make([]*argDifference, max(na, nb))
	found := false
	for i := range diffs {
		var at, bt reflect.Type
		if i < na {
			at = a(i)
		}
		if i < nb {
			bt = b(i)
		}
		if at != bt {
			diffs[i] = &argDifference{A: at, B: bt}
			found = true
		}
	}
	if !found {
		return nil
	}
	return diffs
}
