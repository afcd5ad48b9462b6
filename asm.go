package questlock

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"golang.org/x/arch/x86/x86asm"
)

const (
	opcodeCALLrel  = 0xe8 // CALL rel32
	opcodeCALLind  = 0xff // CALL r/m64, /2
	opcodeINT3     = 0xcc
	opcodeJMPind   = 0xff // JMP r/m64, /4
	opcodeLEA      = 0x8d
	opcodeMOV_r_rm = 0x8b // MOV r, r/m
	opcodeMOV_imm  = 0xb8 // MOV r64, imm64 (+ register)
	opcodeNOP      = 0x90

	prefixREXW = byte(x86asm.PrefixREX) | byte(x86asm.PrefixREXW)

	regModeIndirect = 0
	regModeDisp8    = 1
	regModeDisp32   = 2
	regModeDirect   = 3

	rmRIP = 5 // with mod 0, r/m 101 selects RIP+disp32
	rmSIB = 4

	// CallWidth is the size of the CALL [RIP+disp32] written at a patch
	// site.
	CallWidth = 6

	// NearCallWidth is the size of CALL rel32.
	NearCallWidth = 5
)

// Register numbers as they appear in ModRM and SIB fields.
type register byte

const (
	regAX register = iota
	regCX
	regDX
	regBX
	regSP
	regBP
	regSI
	regDI
)

// emitter appends raw x86-64 instructions to a buffer. It only knows the
// handful of forms the trampolines need.
type emitter struct {
	buf []byte
}

// modrm encodes a memory operand [base+disp] for the given reg field,
// choosing the shortest displacement. RSP as a base needs a SIB byte and RBP
// can't be encoded without a displacement.
func (e *emitter) modrm(reg, base register, disp int32) {
	mode := byte(regModeDisp32)
	switch {
	case disp == 0 && base != regBP:
		mode = regModeIndirect
	case disp >= math.MinInt8 && disp <= math.MaxInt8:
		mode = regModeDisp8
	}

	e.buf = append(e.buf, mode<<6|byte(reg)<<3|byte(base))
	if base == regSP {
		e.buf = append(e.buf, byte(rmSIB)<<3|byte(regSP))
	}

	switch mode {
	case regModeDisp8:
		e.buf = append(e.buf, byte(int8(disp)))
	case regModeDisp32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(disp))
	}
}

// MOV r32, dword [base+disp]
func (e *emitter) movLoad32(dst, base register, disp int32) {
	e.buf = append(e.buf, opcodeMOV_r_rm)
	e.modrm(dst, base, disp)
}

// MOV r64, qword [base+disp]
func (e *emitter) movLoad64(dst, base register, disp int32) {
	e.buf = append(e.buf, prefixREXW, opcodeMOV_r_rm)
	e.modrm(dst, base, disp)
}

// LEA r64, [base+disp]
func (e *emitter) lea64(dst, base register, disp int32) {
	e.buf = append(e.buf, prefixREXW, opcodeLEA)
	e.modrm(dst, base, disp)
}

// MOV r64, imm64
func (e *emitter) movImm64(dst register, imm uint64) {
	e.buf = append(e.buf, prefixREXW, opcodeMOV_imm+byte(dst))
	e.buf = binary.LittleEndian.AppendUint64(e.buf, imm)
}

// JMP r64
func (e *emitter) jmpReg(r register) {
	e.buf = append(e.buf, opcodeJMPind, regModeDirect<<6|4<<3|byte(r))
}

// ready returns the finished instructions. Nothing may be emitted after it.
func (e *emitter) ready() []byte {
	code := e.buf
	e.buf = nil
	return code
}

// nopFill overwrites buf with single byte NOPs.
func nopFill(buf []byte) {
	for i := range buf {
		buf[i] = opcodeNOP
	}
}

// encodeNearCall returns CALL rel32 as it would execute from site.
func encodeNearCall(site, target uintptr) ([]byte, error) {
	rel := int64(target) - int64(site+NearCallWidth)
	if rel < math.MinInt32 || rel > math.MaxInt32 {
		return nil, fmt.Errorf("%w: call from %#x to %#x", ErrOutOfRange, site, target)
	}

	buf := make([]byte, NearCallWidth)
	buf[0] = opcodeCALLrel
	binary.LittleEndian.PutUint32(buf[1:], uint32(int32(rel)))
	return buf, nil
}

// encodeIndirectCall returns CALL qword [RIP+disp32] where the qword at slot
// holds the real destination.
func encodeIndirectCall(site, slot uintptr) ([]byte, error) {
	disp := int64(slot) - int64(site+CallWidth)
	if disp < math.MinInt32 || disp > math.MaxInt32 {
		return nil, fmt.Errorf("%w: call slot %#x is too far from %#x", ErrOutOfRange, slot, site)
	}

	buf := make([]byte, CallWidth)
	buf[0] = opcodeCALLind
	buf[1] = regModeIndirect<<6 | 2<<3 | rmRIP
	binary.LittleEndian.PutUint32(buf[2:], uint32(int32(disp)))
	return buf, nil
}

// padCode pads code with INT3 to a multiple of 16 bytes.
func padCode(code []byte) []byte {
	padded := make([]byte, (len(code)+0xf)&^0xf)
	copy(padded, code)
	for i := len(code); i < len(padded); i++ {
		padded[i] = opcodeINT3
	}
	return padded
}

// Disassemble lists x86-64 code as if it were loaded at baseAddr.
func Disassemble(code []byte, baseAddr uintptr) (string, error) {
	var buf bytes.Buffer

	for i := 0; i < len(code); {
		instruction, err := x86asm.Decode(code[i:], 64)
		if err != nil {
			return "", fmt.Errorf("decode error at offset %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "0x%08x\t%-20s\t%s\n", baseAddr+uintptr(i), hex.EncodeToString(code[i:i+instruction.Len]), instruction.String())

		i += instruction.Len
	}

	return buf.String(), nil
}
