// Package hcl provides the HCL implementation of config.Loader. It parses
// every .hcl file of the configuration, decodes the unique build block
// first, and decodes all task blocks with an evaluation context that
// exposes the build values as variables.
package hcl
