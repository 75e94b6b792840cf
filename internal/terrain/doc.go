// Package terrain owns the elevation model used by the georeferencing
// pipeline.
//
// Responsibilities: gridded elevation storage, affine grid-to-world
// mapping, bilinear elevation sampling, synthetic terrain generation,
// and ESRI ASCII grid I/O.
// Key types: Grid, Transform, Bounds.
//
// Dependency rule: terrain is a leaf package. It must not depend on
// camera, georef, or any server code.
package terrain
