// Package stream implements the chunk pipeline: accumulation, delta vs
// accumulated mode conversion, sequence validation, bounded-buffer
// backpressure, per-chunk timeouts, throttling and tee fan-out.
//
// Every operator consumes a `<-chan ir.StreamChunk`, returns a fresh channel
// and preserves chunk order; operators only merge or augment chunks, never
// reorder them. Failures travel in-band as terminal error chunks, after which
// the channel is closed (see package ir for the stream contract). All
// operators observe context cancellation at every blocking send and receive.
package stream
