// Package codec converts values between Go and the Lua stack.
//
// Encode never fails: host types with no Lua representation encode as
// nil, because many call sites (property reads, print formatting) cannot
// propagate an encode failure. Decode never raises: it reports "not
// convertible" so callers can build positional type-mismatch errors with
// the attempted and expected type names.
//
// # Supported categories
//
//   - booleans, all integer and float widths
//   - strings and []byte (Lua strings are byte-counted; embedded NULs
//     survive both directions)
//   - pointers as optionals: nil encodes as Lua nil, presence recurses;
//     nested pointers collapse to the innermost presence/absence
//   - homogeneous slices of any supported element type (1-based tables)
//   - string-keyed maps of any supported value type
//   - lua.LValue passthrough in both directions
//
// Integer targets reject numbers with a fractional part; 3.5 does not
// decode into an int64 parameter.
//
// # Named converters
//
// A Registry holds custom converters looked up by name at runtime and
// applied explicitly, e.g. the built-in "datetime" (RFC 3339 string) and
// "url" converters.
package codec
