// Package descriptor implements the textual type language used to describe
// foreign functions and packed aggregates.
//
// Grammar:
//
//	function  = "(" [ type { "," type } ] ")" type
//	aggregate = "[" [ type { "," type } ] "]"
//	type      = atom | aggregate
//	atom      = "auto" | "?" | "void" | "int" | "float" | "double" | "longdouble"
//	          | "isize" | "usize" | "i8" | "i16" | "i32" | "i64"
//	          | "u8" | "u16" | "u32" | "u64" | "f32" | "f64" | "f128"
//	          | "*" | "&str" | "*str" | "&[]" | "*[]"
//
// Whitespace between tokens is ignored. The parser performs no semantic
// checks: an auto return type parses fine and is rejected later, when a
// call interface is prepared.
//
//	args, ret, err := descriptor.ParseFunc("(i32,[f32,f32])i32")
//	t, err := descriptor.Parse("[[],[i32,[f32]]]")
package descriptor
