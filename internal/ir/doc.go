// Package ir holds the serialisable records of paramtrace: property
// definitions, runs and matches, together with their canonical JSON form and
// content hashes.
//
// ir imports nothing internal. Key constraints:
//   - No float types anywhere; numbers are int64
//   - All JSON tags use snake_case
//   - Identities are SHA-256 over canonical JSON with a domain prefix
package ir
