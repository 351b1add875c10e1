// Package format defines the converter contract between external wire
// formats and the canonical IR, plus the error their mapping failures are
// reported through. Converters are external collaborators: the core never
// interprets wire shapes itself, it only calls ToIR at the inbound edge and
// FromIR / FromIRStream at the outbound edge.
package format
