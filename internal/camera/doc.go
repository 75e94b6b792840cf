// Package camera models an oblique aerial frame camera with a pinhole
// projection.
//
// Responsibilities: intrinsic and extrinsic parameter handling,
// pixel-to-ray casting into world space, world-to-pixel projection,
// and ground footprint estimation.
// Key types: Camera, Intrinsics, Extrinsics, Pixel, Footprint.
//
// World coordinates are a local east-north-up meter frame (X east,
// Y north, Z up). Pixel coordinates put the origin at the top-left of
// the sensor with Y growing downward.
package camera
