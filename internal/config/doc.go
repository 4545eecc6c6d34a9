// Package config defines the format-agnostic configuration model of a
// build step run, along with the Loader interface that produces it.
//
// The Model is the single source of truth for pipeline composition.
// Concrete loaders, such as the HCL one, live in separate packages and
// resolve every path to an absolute one before returning.
package config
