// Package pipeline composes a run from the configuration model and
// executes it.
//
// Composition has two phases. In the first, source units are discovered
// and every task is created and registered in a per-run registry. In the
// second, one aggregator is created per group, depending on all of its
// members, and depends_on references to tasks or groups become graph
// edges. Nothing touches the filesystem for writing before Run.
package pipeline
