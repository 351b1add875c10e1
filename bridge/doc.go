// Package bridge implements the single-backend façade: convert the external
// request to IR, run the middleware chain, execute against one backend, run
// the chain again and convert back. Streaming calls apply the per-chunk hooks
// before the outbound format conversion, preserving chunk order end-to-end.
package bridge
