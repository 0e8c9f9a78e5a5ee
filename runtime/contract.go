package runtime

import (
	"sort"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/engine"
	"github.com/wippyai/wavedash/errors"
)

// Contract is what a compiled guest offers and expects.
type Contract struct {
	Entry      string
	Exports    []string
	Imports    []string
	HasMemory  bool
	HasAlloc   bool
	HasEntry   bool
	HasInit    bool
	HasSystems bool
}

func contractOf(m *engine.WazeroModule, entry string) Contract {
	exports := m.ExportedFunctions()
	_, hasCount := exports[wavedash.ExportSystemCount]
	_, hasRun := exports[wavedash.ExportRunSystem]
	_, hasAlloc := exports[wavedash.ExportAlloc]
	_, hasEntry := exports[entry]
	_, hasInit := exports[wavedash.ExportInit]

	c := Contract{
		Entry:      entry,
		HasMemory:  m.HasMemoryExport(wavedash.ExportMemory),
		HasAlloc:   hasAlloc,
		HasEntry:   hasEntry,
		HasInit:    hasInit,
		HasSystems: hasCount && hasRun,
	}
	for name := range exports {
		c.Exports = append(c.Exports, name)
	}
	sort.Strings(c.Exports)
	for _, def := range m.ImportedFunctions() {
		mod, name, _ := def.Import()
		c.Imports = append(c.Imports, mod+"."+name)
	}
	sort.Strings(c.Imports)
	return c
}

// Check returns a load error naming the first missing requirement.
func (c Contract) Check(module string) error {
	switch {
	case !c.HasMemory:
		return errors.MissingExport(module, wavedash.ExportMemory)
	case !c.HasAlloc:
		return errors.MissingExport(module, wavedash.ExportAlloc)
	case !c.HasEntry && !c.HasSystems:
		return errors.Load(module, "no entry point: export "+c.Entry+" or "+
			wavedash.ExportSystemCount+" and "+wavedash.ExportRunSystem, nil)
	}
	return nil
}
