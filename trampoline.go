package questlock

// Trampoline generates the stub a patch site calls into. The stub moves the
// values the game had live at the patch point into the first two argument
// registers and jumps to the callback. It's a JMP, not a CALL, so the
// callback returns directly to the instruction after the patched call.
//
// Generate must be a pure function of callback.
type Trampoline interface {
	Name() string
	Generate(callback uintptr) []byte
}

// Stack offsets below are relative to RSP after the patched CALL has pushed
// its return address, hence the leading 0x8. They are only valid for the
// 1.10.163 runtime.
const (
	dropHandleIDOffset = 0x8 + 0x88 + 0x8

	transferItemOffset       = 0x8 + 0x210 - 0x1B8
	transferStacksOffset     = 0x110 + 0x18
	transferStackArrayOffset = 0x8
)

type dropTrampoline struct{}

// DropTrampoline calls a callback with the signature
//
//	void DropItemHook(uint32_t handleID, uint32_t stackID)
//
// The handle id is spilled on the stack and RBX points at a pointer to the
// stack id.
var DropTrampoline Trampoline = dropTrampoline{}

func (dropTrampoline) Name() string { return "drop" }

// Generate returns the x86-64 machine code equivalent of:
//
//	MOV ECX, dword [RSP+0x98]
//	MOV RDX, qword [RBX]
//	MOV EDX, dword [RDX]
//	MOV RAX, <callback>
//	JMP RAX
func (dropTrampoline) Generate(callback uintptr) []byte {
	var e emitter
	e.movLoad32(regCX, regSP, dropHandleIDOffset)
	e.movLoad64(regDX, regBX, 0)
	e.movLoad32(regDX, regDX, 0)
	e.movImm64(regAX, uint64(callback))
	e.jmpReg(regAX)
	return e.ready()
}

type transferTrampoline struct{}

// TransferTrampoline calls a callback with the signature
//
//	void TransferItemHook(const BGSInventoryItem* item, const BSTSmallArray<uint16_t, 4>* stackIDs)
//
// The item is spilled on the stack. The frame pointer locates the transfer
// request, which holds the stack id array 8 bytes in.
var TransferTrampoline Trampoline = transferTrampoline{}

func (transferTrampoline) Name() string { return "transfer" }

// Generate returns the x86-64 machine code equivalent of:
//
//	MOV RCX, qword [RSP+0x60]
//	MOV RDX, qword [RBP+0x128]
//	LEA RDX, [RDX+0x8]
//	MOV RAX, <callback>
//	JMP RAX
func (transferTrampoline) Generate(callback uintptr) []byte {
	var e emitter
	e.movLoad64(regCX, regSP, transferItemOffset)
	e.movLoad64(regDX, regBP, transferStacksOffset)
	e.lea64(regDX, regDX, transferStackArrayOffset)
	e.movImm64(regAX, uint64(callback))
	e.jmpReg(regAX)
	return e.ready()
}
