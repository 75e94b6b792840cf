// Package georef owns the ray/terrain intersection kernel and the
// engine that compares true terrain hits against flat-plane
// projections.
//
// Responsibilities: march-then-bisect ray casting against an elevation
// field, planar reference projection, and per-pixel error sampling.
// Key types: ElevationField, MarchParams, Engine, ErrorSample.
//
// Everything here is pure computation over read-only inputs: an Engine
// may be shared by any number of goroutines once built.
package georef
