package plugin

// Minimal hand-assembled WASM binaries used as test fixtures, since no
// WAT assembler is a wired dependency. Each is the smallest module
// satisfying a particular export shape; bytes are laid out in WASM
// binary-format section order (type, function, memory, export, code).

// validProcessWasm exports memory and process(f32,f32)->f32, which
// simply returns its first argument unchanged.
func validProcessWasm() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, // magic, version
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7D, 0x7D, 0x01, 0x7D, // type: (f32,f32)->f32
		0x03, 0x02, 0x01, 0x00, // function: func0 -> type0
		0x05, 0x03, 0x01, 0x00, 0x01, // memory: 1 page min
		0x07, 0x14, 0x02, // export: count=2
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00, // "memory" -> memory 0
		0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00, // "process" -> func 0
		0x0A, 0x06, 0x01, 0x04, 0x00, 0x20, 0x00, 0x0B, // code: local.get 0; end
	}
}

// trapProcessWasm exports the same shape but process executes
// unreachable, used for the disable-on-trap scenario.
func trapProcessWasm() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7D, 0x7D, 0x01, 0x7D,
		0x03, 0x02, 0x01, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x14, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00,
		0x0A, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0B, // code: unreachable; end
	}
}

// missingProcessWasm exports only memory, no process function.
func missingProcessWasm() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x0A, 0x01,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	}
}

// missingMemoryWasm exports process but declares no memory at all.
func missingMemoryWasm() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x07, 0x01, 0x60, 0x02, 0x7D, 0x7D, 0x01, 0x7D,
		0x03, 0x02, 0x01, 0x00,
		0x07, 0x0B, 0x01,
		0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00,
		0x0A, 0x06, 0x01, 0x04, 0x00, 0x20, 0x00, 0x0B,
	}
}

// initFailWasm exports memory, process, and an init() -> i32 that
// always returns 1 (failure).
func initFailWasm() []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00,
		0x01, 0x0B, 0x02, 0x60, 0x02, 0x7D, 0x7D, 0x01, 0x7D, 0x60, 0x00, 0x01, 0x7F,
		0x03, 0x03, 0x02, 0x00, 0x01,
		0x05, 0x03, 0x01, 0x00, 0x01,
		0x07, 0x1B, 0x03,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x07, 'p', 'r', 'o', 'c', 'e', 's', 's', 0x00, 0x00,
		0x04, 'i', 'n', 'i', 't', 0x00, 0x01,
		0x0A, 0x0B, 0x02, 0x04, 0x00, 0x20, 0x00, 0x0B, 0x04, 0x00, 0x41, 0x01, 0x0B,
	}
}
