// Package backend defines the provider-agnostic contract concrete backends
// implement and the error type their failures are reported through.
//
// Core goals:
//   - Unify streaming + non-streaming execution behind a single interface
//   - Keep the contract narrow: the core never sees vendor SDK types
//   - Carry a retryability hint so routers can decide whether to fail over
//   - Facilitate lightweight mocking for tests (Mock)
//
// Providers (e.g. OpenAI, Anthropic) implement the Adapter interface from
// this package so the bridge and router remain decoupled from vendor SDKs.
package backend
