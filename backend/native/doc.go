// Package native loads shared libraries with dlopen and calls their
// functions through libffi.
//
// It requires cgo on Linux or macOS and libffi visible to pkg-config. Other
// builds compile a stub whose Open fails with a library_open error.
//
// Aggregates are passed and returned by value. Their packed buffers are
// repacked into the platform's natural C layout around each call. The
// 16-byte longdouble and f128 slots hold a binary64 value; it is converted
// to the host long double for the call and back for the result. The heap
// is the process's malloc heap.
package native

// Config holds configuration for runtime creation.
type Config struct {
	// Now resolves all symbols at open time (RTLD_NOW instead of RTLD_LAZY).
	Now bool
	// Global makes the library's symbols available to later opens
	// (RTLD_GLOBAL instead of RTLD_LOCAL).
	Global bool
}
