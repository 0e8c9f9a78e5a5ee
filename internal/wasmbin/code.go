package wasmbin

import "bytes"

// Code accumulates a function body. Func appends the final end opcode.
type Code struct {
	buf bytes.Buffer
}

// NewCode starts an empty body.
func NewCode() *Code {
	return &Code{}
}

func (c *Code) op(b ...byte) *Code {
	c.buf.Write(b)
	return c
}

func (c *Code) u32(v uint32) *Code {
	WriteLEB128u(&c.buf, v)
	return c
}

func (c *Code) Bytes() []byte { return c.buf.Bytes() }

func (c *Code) Unreachable() *Code { return c.op(0x00) }
func (c *Code) Nop() *Code         { return c.op(0x01) }
func (c *Code) Block() *Code       { return c.op(0x02, 0x40) }
func (c *Code) Loop() *Code        { return c.op(0x03, 0x40) }
func (c *Code) If() *Code          { return c.op(0x04, 0x40) }
func (c *Code) Else() *Code        { return c.op(0x05) }
func (c *Code) End() *Code         { return c.op(0x0B) }
func (c *Code) Br(depth uint32) *Code {
	return c.op(0x0C).u32(depth)
}
func (c *Code) BrIf(depth uint32) *Code {
	return c.op(0x0D).u32(depth)
}
func (c *Code) Return() *Code { return c.op(0x0F) }
func (c *Code) Call(fn uint32) *Code {
	return c.op(0x10).u32(fn)
}
func (c *Code) Drop() *Code { return c.op(0x1A) }

func (c *Code) LocalGet(i uint32) *Code  { return c.op(0x20).u32(i) }
func (c *Code) LocalSet(i uint32) *Code  { return c.op(0x21).u32(i) }
func (c *Code) LocalTee(i uint32) *Code  { return c.op(0x22).u32(i) }
func (c *Code) GlobalGet(i uint32) *Code { return c.op(0x23).u32(i) }
func (c *Code) GlobalSet(i uint32) *Code { return c.op(0x24).u32(i) }

// Loads and stores take a log2 alignment hint and a static offset.
func (c *Code) I32Load(align, offset uint32) *Code  { return c.op(0x28).u32(align).u32(offset) }
func (c *Code) I64Load(align, offset uint32) *Code  { return c.op(0x29).u32(align).u32(offset) }
func (c *Code) I32Store(align, offset uint32) *Code { return c.op(0x36).u32(align).u32(offset) }
func (c *Code) I64Store(align, offset uint32) *Code { return c.op(0x37).u32(align).u32(offset) }

func (c *Code) MemorySize() *Code { return c.op(0x3F, 0x00) }
func (c *Code) MemoryGrow() *Code { return c.op(0x40, 0x00) }

func (c *Code) I32Const(v int32) *Code {
	c.op(0x41)
	WriteLEB128s(&c.buf, v)
	return c
}

func (c *Code) I64Const(v int64) *Code {
	c.op(0x42)
	WriteLEB128s64(&c.buf, v)
	return c
}

func (c *Code) I32Eqz() *Code { return c.op(0x45) }
func (c *Code) I32Eq() *Code  { return c.op(0x46) }
func (c *Code) I32Ne() *Code  { return c.op(0x47) }
func (c *Code) I32LtU() *Code { return c.op(0x49) }
func (c *Code) I32GtU() *Code { return c.op(0x4B) }
func (c *Code) I32GeU() *Code { return c.op(0x4F) }
func (c *Code) I32Add() *Code { return c.op(0x6A) }
func (c *Code) I32Sub() *Code { return c.op(0x6B) }
func (c *Code) I32Mul() *Code { return c.op(0x6C) }
func (c *Code) I32And() *Code { return c.op(0x71) }
func (c *Code) I64Add() *Code { return c.op(0x7C) }
