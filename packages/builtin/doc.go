// Package builtin provides the functions available inside {{...}} placeholders.
//
// Available functions:
//   - uuid(): random UUID v4
//   - now(), date(layout), timestamp(), timestampMs(): current time in several shapes
//   - randomInt(min, max), randomString(length), randomEmail(): test data
//   - base64(value), urlEncode(value): encoders
package builtin
