// Package workload reconciles raw teaching assignments into a consistent
// weekly workload model.
//
// Everything here is a pure function over an in-memory snapshot of
// assignments: callers read the current records for the scope they care
// about (one teacher, one class, or the whole school), hand them in, and
// persist whatever records or intents come back. Nothing in this package
// performs I/O or keeps state between calls.
package workload
