// Package scan implements the recursive reconnaissance engine: a
// breadth-first traversal over a social graph reached through the platform
// collaborator.
//
// The pieces compose leaf-first. Stopper is a per-run cancellation token
// checked at every suspension point. Invoker wraps a single remote call
// with rate-limit waits, bounded retry for session contention, and soft
// failure swallowing. Resolver normalizes heterogeneous identifiers into
// platform.PeerRef values. Probe assembles one user's findings. Engine
// drives the traversal and streams events onto a bounded channel.
//
// Scheduling is single-threaded and cooperative: the engine issues one
// remote call at a time, and the fixed inter-request delay is the sole
// rate-governing mechanism. Cancellation is best-effort; a stop never
// preempts a call already in flight, it only prevents new ones and cuts
// wait loops short.
package scan
