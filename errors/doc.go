// Package errors provides structured error types for the sffi engine.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// Every Kind carries a stable numeric code for exposure layers that can only
// pass integers across a boundary.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseParse, errors.KindDescriptorSyntax).
//		Fragment("i33", 4).
//		Detail("unknown type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidCast("&str", "f32")
//	err := errors.CountMismatch(errors.PhaseCall, "accepted invalid arguments count", 1, 2)
//
// All errors implement the standard error interface and support errors.Is/As.
// errors.Is matches on Phase and Kind; IsKind matches on Kind alone.
package errors
