// ABOUTME: Root package providing version information and package documentation
// ABOUTME: JOE enumerates garbage collection roots for a managed runtime

// Package joe is the root set enumeration subsystem of a tracing garbage
// collector. It discovers every reference into the heap held by statics,
// global tables, thread stacks and the boot image, partitions thread
// scanning among parallel collector workers, and keeps remembered sets
// flushed so the collector sees cross-region edges.
//
// The work is split across packages: rootset (phases and the work counter),
// scan (per-object field scanning), threads (execution contexts and stack
// scanning), remset (write-barrier logs), segment (static slot tables),
// collector (an owning collection cycle) and heapdump (image loading).
package joe

// Version is the semantic version of the module
const Version = "0.1.0-dev"
