// Package dag is the execution layer of a pipeline run. It holds the task
// graph, checks it for cycles, and executes tasks concurrently once all of
// their dependencies have succeeded.
//
// A failing task skips only its dependents. Fatal errors (see
// artifact.IsFatal) cancel the run so no further task is started.
package dag
