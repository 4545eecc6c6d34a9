// Package registry holds the identities of every step registered during
// one pipeline run. It replaces a process-global task registry: a Registry
// is created per run and passed explicitly into composition, and a
// duplicate registration is reported as a typed result instead of
// silently mutating shared state.
package registry
