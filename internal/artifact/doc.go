// Package artifact holds the data model shared by the generation stages:
// the declarative Spec describing an output, the in-memory Payload computed
// for it, and the error taxonomy every stage reports through.
package artifact
