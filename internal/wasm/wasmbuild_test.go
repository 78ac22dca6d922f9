package wasm

// A minimal WebAssembly encoder for building test guests without a wasm
// toolchain. Only the instructions the tests need are covered.

const (
	opUnreachable = 0x00
	opLoop        = 0x03
	opIf          = 0x04
	opElse        = 0x05
	opEnd         = 0x0b
	opBr          = 0x0c
	opCall        = 0x10
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Const    = 0x41
	opI32LtU      = 0x49
	opI32Add      = 0x6a
	opI32Sub      = 0x6b
	typeI32       = 0x7f
	blockVoid     = 0x40
)

// memory.copy 0 0
var opMemoryCopy = []byte{0xfc, 0x0a, 0x00, 0x00}

// Type indices used by testModule.
const (
	typeI32I32Void = 0 // (i32, i32) -> ()
	typeI32ToI32   = 1 // (i32) -> i32
	typeVoid       = 2 // () -> ()
	typeI32Void    = 3 // (i32) -> ()
)

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func vec(items ...[]byte) []byte {
	return concat(uleb(uint32(len(items))), concat(items...))
}

func wasmName(s string) []byte {
	return concat(uleb(uint32(len(s))), []byte(s))
}

func section(id byte, payload []byte) []byte {
	return concat([]byte{id}, uleb(uint32(len(payload))), payload)
}

func i32Const(v int32) []byte {
	return concat([]byte{opI32Const}, sleb(v))
}

func localGet(i uint32) []byte  { return concat([]byte{opLocalGet}, uleb(i)) }
func localSet(i uint32) []byte  { return concat([]byte{opLocalSet}, uleb(i)) }
func globalGet(i uint32) []byte { return concat([]byte{opGlobalGet}, uleb(i)) }
func globalSet(i uint32) []byte { return concat([]byte{opGlobalSet}, uleb(i)) }
func call(i uint32) []byte      { return concat([]byte{opCall}, uleb(i)) }

type testImport struct {
	module, name string
	typ          uint32
}

type testFunc struct {
	export    string // empty: not exported
	typ       uint32
	i32Locals uint32
	code      []byte // without the final end
}

// testModule describes a guest with one page of memory exported as
// "memory", a mutable i32 heap pointer (global 0, starting at heapBase) and
// GreetingPrefix stored at address 0.
type testModule struct {
	imports []testImport
	funcs   []testFunc
}

const heapBase = 1024

func (tm testModule) bytes() []byte {
	types := vec(
		concat([]byte{0x60}, vec([]byte{typeI32}, []byte{typeI32}), vec()),
		concat([]byte{0x60}, vec([]byte{typeI32}), vec([]byte{typeI32})),
		concat([]byte{0x60}, vec(), vec()),
		concat([]byte{0x60}, vec([]byte{typeI32}), vec()),
	)

	var imports, funcTypes, exports, bodies [][]byte
	for _, imp := range tm.imports {
		imports = append(imports, concat(wasmName(imp.module), wasmName(imp.name), []byte{0x00}, uleb(imp.typ)))
	}
	exports = append(exports, concat(wasmName("memory"), []byte{0x02, 0x00}))
	for i, f := range tm.funcs {
		funcTypes = append(funcTypes, uleb(f.typ))
		if f.export != "" {
			idx := uint32(len(tm.imports) + i)
			exports = append(exports, concat(wasmName(f.export), []byte{0x00}, uleb(idx)))
		}
		var locals []byte
		if f.i32Locals > 0 {
			locals = vec(concat(uleb(f.i32Locals), []byte{typeI32}))
		} else {
			locals = vec()
		}
		body := concat(locals, f.code, []byte{opEnd})
		bodies = append(bodies, concat(uleb(uint32(len(body))), body))
	}

	memory := vec([]byte{0x00, 0x01})
	globals := vec(concat([]byte{typeI32, 0x01}, i32Const(heapBase), []byte{opEnd}))
	data := vec(concat([]byte{0x00}, i32Const(0), []byte{opEnd}, wasmName("Hello, ")))

	out := concat(
		[]byte{0x00, 0x61, 0x73, 0x6d}, // magic
		[]byte{0x01, 0x00, 0x00, 0x00}, // version
		section(1, types),
	)
	if len(imports) > 0 {
		out = concat(out, section(2, vec(imports...)))
	}
	return concat(out,
		section(3, vec(funcTypes...)),
		section(5, memory),
		section(6, globals),
		section(7, vec(exports...)),
		section(10, vec(bodies...)),
		section(11, data),
	)
}

// Function indices in guestModule: env.alert is 0, then funcs in order.
const (
	fnAlert = 0
	fnFib   = 1
)

// fibCode is naive recursive fib over param 0:
// if n < 2 { n } else { fib(n-1) + fib(n-2) }
func fibCode() []byte {
	return concat(
		localGet(0), i32Const(2), []byte{opI32LtU},
		[]byte{opIf, typeI32},
		localGet(0),
		[]byte{opElse},
		localGet(0), i32Const(1), []byte{opI32Sub}, call(fnFib),
		localGet(0), i32Const(2), []byte{opI32Sub}, call(fnFib),
		[]byte{opI32Add},
		[]byte{opEnd},
	)
}

// greetCode copies "Hello, " and the name (ptr=param 0, len=param 1) into
// fresh heap space (local 2) and calls alert once.
func greetCode() []byte {
	return concat(
		globalGet(0), localSet(2),
		globalGet(0), localGet(1), i32Const(7), []byte{opI32Add}, []byte{opI32Add}, globalSet(0),
		localGet(2), i32Const(0), i32Const(7), opMemoryCopy,
		localGet(2), i32Const(7), []byte{opI32Add}, localGet(0), localGet(1), opMemoryCopy,
		localGet(2), localGet(1), i32Const(7), []byte{opI32Add}, call(fnAlert),
	)
}

// allocCode is a bump allocator: returns heap, then heap += size.
func allocCode() []byte {
	return concat(
		globalGet(0),
		globalGet(0), localGet(0), []byte{opI32Add}, globalSet(0),
	)
}

// spinCode loops forever, then satisfies the i32 result.
func spinCode() []byte {
	return concat(
		[]byte{opLoop, blockVoid, opBr, 0x00, opEnd},
		i32Const(0),
	)
}

func alertImportDecl() testImport {
	return testImport{module: "env", name: "alert", typ: typeI32I32Void}
}

// guestModule returns a well-formed guest. Callers may edit the result
// before calling bytes.
func guestModule() testModule {
	return testModule{
		imports: []testImport{alertImportDecl()},
		funcs: []testFunc{
			{export: "fib_export", typ: typeI32ToI32, code: fibCode()},
			{export: "greet", typ: typeI32I32Void, i32Locals: 1, code: greetCode()},
			{export: "alloc", typ: typeI32ToI32, code: allocCode()},
			{export: "free", typ: typeI32I32Void},
		},
	}
}

func guestWasm() []byte {
	return guestModule().bytes()
}
