// Package trace records what spvir is doing: one span per pipeline stage
// and file, nested under the command that started them.
//
// # Usage
//
//	spvir roundtrip --trace=- --trace-level=phase shader.spv
//
// # Tracers
//
//   - Nop: disabled tracing, nothing is allocated
//   - StreamTracer: writes every event as it happens
//   - RingTracer: keeps the last N events for a dump after a failure
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// A level admits every scope up to its own granularity:
//
//   - ScopeDriver: the CLI command and batch runs (LevelPhase)
//   - ScopePass: read, lower, lift and write of one file (LevelPhase)
//   - ScopeModule: sub-steps of a pass such as lower.collect (LevelDetail)
//   - ScopeNode: per-function work (LevelDebug)
//
// Tracers travel through context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "lower", trace.CurrentSpan(ctx).SpanID)
//	defer span.End("")
package trace
