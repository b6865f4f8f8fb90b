// Package imaging turns decoded PSI planes into things people and tools can
// look at: rendered PNGs, sample readouts, statistics, distances, grids and
// edge maps.
//
// # Coordinate System
//
// Coordinates are survey-image sample positions, 0-based:
//   - X runs across the lane (transverse), 0 = leftmost sample
//   - Y runs along the direction of travel (longitudinal), 0 = first scan line
//
// A Plane carries the psi.Region it was decoded from, and every function
// that takes coordinates expects them in image space, not relative to the
// region.
//
// # Physical Units
//
// Header resolutions are millimetres per sample. Distances and grid
// spacing are reported in millimetres; 3D samples are converted to heights
// with the vertical resolution.
//
// # Thread Safety
//
// SurveyCache is safe for concurrent use. Other functions are stateless.
package imaging
