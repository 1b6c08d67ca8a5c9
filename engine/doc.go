// Package engine implements the worker-side half of the dispatch protocol:
// a connection state machine built from four cooperating tasks (reader,
// writer, assignee, exitter) that register a single function with a
// job-dispatch server, accept assignments, run each one in an external
// child process, and report progress and completion back over the wire.
package engine
