package system

import (
	"sort"

	"github.com/wippyai/wavedash/errors"
	"github.com/wippyai/wavedash/guest"
)

// DefaultEntry is the entry name bound to the wavedash_main export.
const DefaultEntry = "main"

// SystemHandle identifies a system within one App. Handles are assigned in
// registration order and never reused.
type SystemHandle uint32

// App is the guest-side session: named entries, init hooks and systems.
type App struct {
	client      *guest.Client
	entries     map[string]func(*guest.Client) error
	init        []func(*guest.Client) error
	initialized bool
	systems     []*System
}

// NewApp creates a session that talks to the host through c.
func NewApp(c *guest.Client) *App {
	return &App{client: c, entries: make(map[string]func(*guest.Client) error)}
}

func (a *App) Client() *guest.Client { return a.client }

// RegisterEntry binds fn to name, replacing any previous binding.
func (a *App) RegisterEntry(name string, fn func(*guest.Client) error) {
	a.entries[name] = fn
}

// Entries returns the registered entry names, sorted.
func (a *App) Entries() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunEntry runs the entry bound to name.
func (a *App) RunEntry(name string) error {
	fn, ok := a.entries[name]
	if !ok {
		return errors.New(errors.PhaseGuest, errors.KindLookup).
			Detail("no entry registered as %q", name).
			Build()
	}
	return fn(a.client)
}

// OnInit queues fn to run on the first Init call.
func (a *App) OnInit(fn func(*guest.Client) error) {
	a.init = append(a.init, fn)
}

// Init runs the queued init hooks once. Later calls do nothing.
func (a *App) Init() error {
	if a.initialized {
		return nil
	}
	a.initialized = true
	for _, fn := range a.init {
		if err := fn(a.client); err != nil {
			return err
		}
	}
	return nil
}

// AddSystem registers s and returns its handle.
func (a *App) AddSystem(s *System) SystemHandle {
	a.systems = append(a.systems, s)
	return SystemHandle(len(a.systems) - 1)
}

func (a *App) SystemCount() uint32 { return uint32(len(a.systems)) }

// System returns the system registered under id.
func (a *App) System(id SystemHandle) (*System, bool) {
	if int(id) >= len(a.systems) {
		return nil, false
	}
	return a.systems[id], true
}

// RunSystem runs the system registered under id.
func (a *App) RunSystem(id SystemHandle) error {
	s, ok := a.System(id)
	if !ok {
		return errors.New(errors.PhaseGuest, errors.KindInvalidInput).
			Detail("system id %d out of range (%d registered)", id, len(a.systems)).
			Build()
	}
	if err := s.Run(a.client); err != nil {
		return errors.Wrap(errors.PhaseGuest, kindOr(err, errors.KindTrap), err, "system "+s.name)
	}
	return nil
}

func kindOr(err error, fallback errors.Kind) errors.Kind {
	if k, ok := errors.KindOf(err); ok {
		return k
	}
	return fallback
}
