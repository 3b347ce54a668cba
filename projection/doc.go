// Package projection turns time-aligned audio feature streams into a 3D
// point cloud for display.
//
// One invocation runs four stages in order on a background goroutine:
// per-feature normalization and weighted concatenation (Compositor),
// sliding-window embedding (algorithms/temporal), joint normalization
// (JointNormalizer) and power-iteration PCA (algorithms/stats). Progress,
// warnings and debug notes arrive on the Task's event stream, followed by
// exactly one "done" event carrying the result.
//
// Nothing in the numeric pipeline is fatal. Unknown normalization names fall
// back to a configured method, missing features are skipped and degenerate
// rows or columns are left unscaled; each anomaly except the last becomes a
// warning event.
//
// Windowing drops the last w-1 frames. Per-frame metadata such as timestamps
// or colors is not re-sliced here; use AlignFrames on the caller side.
package projection
