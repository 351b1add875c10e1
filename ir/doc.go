// Package ir defines the canonical intermediate representation shared by
// every format adapter, backend and pipeline stage in aimatey.
//
// Core goals:
//   - One backend-agnostic request/response/chunk schema so conversion
//     happens exactly twice (at the edges), never in the core
//   - Closed content part set (text, image, tool use) per message
//   - Tagged stream chunk variants with strictly increasing sequence numbers
//   - Parameter clamping so every backend receives values in a valid range
//
// Streams are modeled as `<-chan StreamChunk`. A well-formed stream carries
// zero or one start chunk, any number of content chunks, and is closed after
// exactly one terminal chunk (done or error). Errors travel in-band as error
// chunks; Go error returns are reserved for setup failures.
package ir
