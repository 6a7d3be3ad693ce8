// Package model provides the record types stored by refgraph.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - use int64 for numbers
//   - Record identity is assigned by the store and never patched
//   - Owner references (Post.UserID, Profile.UserID) are immutable after create
//   - All JSON tags use lowerCamelCase to match the request layer payloads
//   - String fields are NFC normalized before they reach the store
package model
