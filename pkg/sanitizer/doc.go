// Package sanitizer normalizes user supplied text before validation and
// storage.
//
// All functions are idempotent: applying them twice gives the same result
// as applying them once. Invalid input yields an empty string rather than
// an error.
//
// Normalization includes:
//   - Names: collapse whitespace, trim leading/trailing spaces
//   - IDs: trim, drop control characters and inner whitespace
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
