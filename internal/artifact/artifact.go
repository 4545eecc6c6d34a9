// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package artifact

// Spec describes how a source unit (or a set of base directories) turns
// into one persisted output.
type Spec struct {
	// OutputPath is the absolute path of the persisted artifact.
	OutputPath string
	// ArchiveName is set for the archive variant only.
	ArchiveName string
	// Description is a human-readable summary used in logs.
	Description string
}

// Payload is the content computed for a Spec before the gate decides
// whether it has to be written. It is owned by the builder invocation
// that produced it.
type Payload struct {
	Path    string
	Content []byte
	// Entries lists the logical members of the payload in output order
	// (archive entry names, manifest patterns, property keys).
	Entries []string
}
