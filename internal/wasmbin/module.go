package wasmbin

import (
	"bytes"
	"slices"
)

// ValType is a WebAssembly number type.
type ValType byte

const (
	I32 ValType = 0x7F
	I64 ValType = 0x7E
)

const (
	magic   = "\x00asm"
	version = "\x01\x00\x00\x00"

	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	kindFunc   = 0x00
	kindMemory = 0x02
)

type funcType struct {
	params  []ValType
	results []ValType
}

type funcImport struct {
	module  string
	name    string
	typeIdx uint32
}

type function struct {
	typeIdx uint32
	locals  []ValType
	body    []byte
}

type export struct {
	name string
	kind byte
	idx  uint32
}

type global struct {
	typ     ValType
	mutable bool
	init    int64
}

type segment struct {
	offset uint32
	init   []byte
}

type limits struct {
	min    uint32
	max    uint32
	hasMax bool
}

// Module builds a core WebAssembly module. Imports must be declared before
// the first defined function so function indices stay stable.
type Module struct {
	types   []funcType
	imports []funcImport
	funcs   []function
	memory  *limits
	globals []global
	exports []export
	data    []segment
}

// New creates an empty module.
func New() *Module {
	return &Module{}
}

func (m *Module) typeIndex(params, results []ValType) uint32 {
	for i, t := range m.types {
		if slices.Equal(t.params, params) && slices.Equal(t.results, results) {
			return uint32(i)
		}
	}
	m.types = append(m.types, funcType{params: params, results: results})
	return uint32(len(m.types) - 1)
}

// ImportFunc declares a function import and returns its function index.
func (m *Module) ImportFunc(module, name string, params, results []ValType) uint32 {
	if len(m.funcs) > 0 {
		panic("wasmbin: imports must be declared before functions")
	}
	m.imports = append(m.imports, funcImport{module: module, name: name, typeIdx: m.typeIndex(params, results)})
	return uint32(len(m.imports) - 1)
}

// Func defines a function and returns its index. The body's final end is
// appended here.
func (m *Module) Func(params, results, locals []ValType, body *Code) uint32 {
	b := append(slices.Clone(body.Bytes()), 0x0B)
	m.funcs = append(m.funcs, function{typeIdx: m.typeIndex(params, results), locals: locals, body: b})
	return uint32(len(m.imports) + len(m.funcs) - 1)
}

// Memory declares the module's single memory.
func (m *Module) Memory(minPages uint32) *Module {
	m.memory = &limits{min: minPages}
	return m
}

// MemoryMax declares a bounded memory.
func (m *Module) MemoryMax(minPages, maxPages uint32) *Module {
	m.memory = &limits{min: minPages, max: maxPages, hasMax: true}
	return m
}

// Global declares a global and returns its index.
func (m *Module) Global(typ ValType, mutable bool, init int64) uint32 {
	m.globals = append(m.globals, global{typ: typ, mutable: mutable, init: init})
	return uint32(len(m.globals) - 1)
}

// ExportFunc exports function idx under name.
func (m *Module) ExportFunc(name string, idx uint32) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindFunc, idx: idx})
	return m
}

// ExportMemory exports memory 0 under name.
func (m *Module) ExportMemory(name string) *Module {
	m.exports = append(m.exports, export{name: name, kind: kindMemory})
	return m
}

// Data places init at offset in memory 0.
func (m *Module) Data(offset uint32, init []byte) *Module {
	m.data = append(m.data, segment{offset: offset, init: slices.Clone(init)})
	return m
}

// Encode encodes the module to WebAssembly binary format
func (m *Module) Encode() []byte {
	var w bytes.Buffer
	w.WriteString(magic)
	w.WriteString(version)

	if len(m.types) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.types)))
		for _, t := range m.types {
			sec.WriteByte(0x60)
			writeValTypes(&sec, t.params)
			writeValTypes(&sec, t.results)
		}
		writeSection(&w, sectionType, sec.Bytes())
	}

	if len(m.imports) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.imports)))
		for _, imp := range m.imports {
			writeName(&sec, imp.module)
			writeName(&sec, imp.name)
			sec.WriteByte(kindFunc)
			WriteLEB128u(&sec, imp.typeIdx)
		}
		writeSection(&w, sectionImport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			WriteLEB128u(&sec, f.typeIdx)
		}
		writeSection(&w, sectionFunction, sec.Bytes())
	}

	if m.memory != nil {
		var sec bytes.Buffer
		WriteLEB128u(&sec, 1)
		if m.memory.hasMax {
			sec.WriteByte(0x01)
			WriteLEB128u(&sec, m.memory.min)
			WriteLEB128u(&sec, m.memory.max)
		} else {
			sec.WriteByte(0x00)
			WriteLEB128u(&sec, m.memory.min)
		}
		writeSection(&w, sectionMemory, sec.Bytes())
	}

	if len(m.globals) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.globals)))
		for _, g := range m.globals {
			sec.WriteByte(byte(g.typ))
			if g.mutable {
				sec.WriteByte(0x01)
			} else {
				sec.WriteByte(0x00)
			}
			if g.typ == I64 {
				sec.WriteByte(0x42)
				WriteLEB128s64(&sec, g.init)
			} else {
				sec.WriteByte(0x41)
				WriteLEB128s(&sec, int32(g.init))
			}
			sec.WriteByte(0x0B)
		}
		writeSection(&w, sectionGlobal, sec.Bytes())
	}

	if len(m.exports) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.exports)))
		for _, exp := range m.exports {
			writeName(&sec, exp.name)
			sec.WriteByte(exp.kind)
			WriteLEB128u(&sec, exp.idx)
		}
		writeSection(&w, sectionExport, sec.Bytes())
	}

	if len(m.funcs) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.funcs)))
		for _, f := range m.funcs {
			var body bytes.Buffer
			WriteLEB128u(&body, uint32(len(f.locals)))
			for _, l := range f.locals {
				WriteLEB128u(&body, 1)
				body.WriteByte(byte(l))
			}
			body.Write(f.body)
			writeVec(&sec, body.Bytes())
		}
		writeSection(&w, sectionCode, sec.Bytes())
	}

	if len(m.data) > 0 {
		var sec bytes.Buffer
		WriteLEB128u(&sec, uint32(len(m.data)))
		for _, d := range m.data {
			WriteLEB128u(&sec, 0)
			sec.WriteByte(0x41)
			WriteLEB128s(&sec, int32(d.offset))
			sec.WriteByte(0x0B)
			writeVec(&sec, d.init)
		}
		writeSection(&w, sectionData, sec.Bytes())
	}

	return w.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, data []byte) {
	w.WriteByte(id)
	writeVec(w, data)
}

func writeValTypes(w *bytes.Buffer, types []ValType) {
	WriteLEB128u(w, uint32(len(types)))
	for _, t := range types {
		w.WriteByte(byte(t))
	}
}
