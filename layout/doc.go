// Package layout computes packed aggregate layouts and provides
// bounds-checked access to aggregate memory.
//
// Layouts are packed: field i starts where field i-1 ends, with no
// alignment padding, so [i32,i32,i32] places fields at 0, 4 and 8 for a
// total of 12 bytes. Pointer kinds and platform-width integers take the
// host word size.
package layout
