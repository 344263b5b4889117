// Package diag defines the diagnostic and error model shared by the build
// pipeline and the check command.
//
// # Data model
//
// Diagnostic is a non-fatal finding. It carries:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form.
//   - Message – human oriented text; keep it short and actionable.
//   - Path – the file or directory the finding is about, when there is one.
//
// Error is the fatal counterpart. Producers return *Error values from the
// failing operation; callers match them with errors.Is against the sentinel
// values (ErrMissingDirectory, ErrAmbiguousChainMember, ...) or extract the
// code with CodeOf.
//
// Warnings that must not stop a build are collected in a Bag and handed back
// to the CLI together with the build result.
package diag
