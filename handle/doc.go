// Package handle maps opaque integer handles to the objects an embedding
// layer hands out: libraries, adapters, layouts and buffers.
//
// Handle 0 is never issued, so callers on the other side of a C or RPC
// boundary can use it as "no object". Function handles are borrowed from
// their library and are not stored here; closing the library invalidates
// them.
//
// The table is safe for concurrent use. The objects it holds are not.
package handle
