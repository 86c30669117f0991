// Package ir provides the canonical value representation used to derive
// content-addressed identities for candidate networks and blocks.
//
// This package contains value types and hashing only. Other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types - structural identity never depends on scores
//   - Object keys are ordered by UTF-16 code units (RFC 8785)
//   - Strings are NFC normalized at the serialization boundary
package ir
