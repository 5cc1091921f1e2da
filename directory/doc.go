// Package directory turns the directory segment of a container into the list of
// sub-block pointers and groups them into planes.
//
// A plane is identified by the start values of every non-spatial dimension
// (scene, time, channel, focus, ...) plus a marker telling whether its
// sub-blocks are mosaic tiles. Sub-blocks of one plane differ only in their X/Y
// placement; the plane's bounding box is the union of those placements.
package directory
