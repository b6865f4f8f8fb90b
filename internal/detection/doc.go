// Package detection finds pavement features on decoded survey planes.
//
// Detectors work on any image.Image, normally the 8-bit rendering of a 2D
// intensity plane or a stretched 3D range plane, and report positions in
// the image's own coordinates. Because planes are rendered with bounds
// offset by the region origin, those coordinates are absolute plane
// samples and can be fed straight back into a region query.
//
// # Features
//
//   - Lines: cracks, joints and lane markings via a Hough line transform,
//     classified as longitudinal, transverse or diagonal
//   - Patches: rectangular repairs from contour bounding boxes
//   - Covers: manholes and valve boxes via a Hough circle transform
//
// Sizes are reported in samples and, through a Scale built from the plane
// layout, in millimetres. Orientation uses physical angles, since the
// transverse and longitudinal resolutions usually differ.
//
// # Edges
//
// All detectors share one edge map: a sample is an edge when its gray
// level differs from its right or lower neighbour by more than 30. This
// suits high-contrast intensity images; raw range planes should be
// stretched first.
//
// Hough transforms visit every edge sample for every angle, so callers
// should bound the region size for large planes.
package detection
