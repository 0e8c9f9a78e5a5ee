package system

import (
	"go.uber.org/multierr"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/guest"
)

// System is a named handler together with the resources it needs.
type System struct {
	name   string
	params []Param
	fn     func() error
}

// New creates a system. A key may appear more than once only if every
// occurrence has the same mutability.
func New(name string, fn func() error, params ...Param) (*System, error) {
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseGuest, "system "+name+" has no handler")
	}
	mutable := make(map[string]bool, len(params))
	for _, p := range params {
		if p == nil {
			return nil, errors.InvalidInput(errors.PhaseGuest, "system "+name+" has a nil parameter")
		}
		if prev, seen := mutable[p.Key()]; seen && prev != p.Mutable() {
			return nil, errors.New(errors.PhaseGuest, errors.KindAlias).
				Key(p.Key()).
				Detail("system %s reads and writes the same resource", name).
				Build()
		}
		mutable[p.Key()] = p.Mutable()
	}
	return &System{name: name, params: params, fn: fn}, nil
}

// MustNew is like New but panics on error.
func MustNew(name string, fn func() error, params ...Param) *System {
	s, err := New(name, fn, params...)
	if err != nil {
		panic(err)
	}
	return s
}

func Func1[A Param](name string, a A, fn func(A) error) (*System, error) {
	return New(name, func() error { return fn(a) }, a)
}

func Func2[A, B Param](name string, a A, b B, fn func(A, B) error) (*System, error) {
	return New(name, func() error { return fn(a, b) }, a, b)
}

func Func3[A, B, C Param](name string, a A, b B, c C, fn func(A, B, C) error) (*System, error) {
	return New(name, func() error { return fn(a, b, c) }, a, b, c)
}

func Func4[A, B, C, D Param](name string, a A, b B, c C, d D, fn func(A, B, C, D) error) (*System, error) {
	return New(name, func() error { return fn(a, b, c, d) }, a, b, c, d)
}

func (s *System) Name() string { return s.name }

// Params returns the declared parameters in resolution order.
func (s *System) Params() []Param { return s.params }

// Run resolves the parameters left to right, calls the handler, and releases
// what was resolved in reverse order. Release happens on every exit path; a
// handler panic is re-raised afterwards.
func (s *System) Run(c *guest.Client) (err error) {
	acquired := 0
	defer func() {
		r := recover()
		for i := acquired - 1; i >= 0; i-- {
			err = multierr.Append(err, s.params[i].release())
		}
		if r != nil {
			panic(r)
		}
	}()

	for _, p := range s.params {
		if perr := p.acquire(c); perr != nil {
			return perr
		}
		acquired++
	}
	return s.fn()
}
