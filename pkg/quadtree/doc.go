// Package quadtree decomposes an RGB pixel grid into a quadtree of
// rectangular blocks. Each block whose detail score, as measured by one of
// five error metrics, stays at or below a threshold is replaced by its
// average color; every other block is split into four quadrants until the
// smallest quadrant would fall below the minimum block area.
//
// Basic usage:
//
//	grid, _ := quadtree.GridFromImage(img)
//	tree := quadtree.NewBuilder(grid, quadtree.Params{
//		Method:       quadtree.Variance,
//		Threshold:    50,
//		MinBlockSize: 4,
//	}).Build()
//	out := quadtree.Render(tree)
package quadtree
