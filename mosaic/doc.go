// Package mosaic assembles the sub-blocks of one plane into a single pixel buffer.
//
// A plane with one sub-block is decoded directly. A plane with several is laid
// out on its bounding box: the destination is zero-initialized, every tile is
// decoded by a bounded pool of workers and copied into its sub-rectangle, and
// the destination is returned only when every tile succeeded.
//
// Disjoint tiles are copied by the worker that decoded them. When tiles
// overlap, they are decoded concurrently and copied afterwards in directory
// order so later tiles deterministically cover earlier ones.
package mosaic
