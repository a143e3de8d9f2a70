package gpu

// A Grid specifies how many workgroups to launch in each dimension of one
// dispatch. There should be one work-item per calculation: kernels in this
// module conventionally declare @workgroup_size(1), which makes each grid cell
// exactly one kernel invocation. A kernel that declares a larger workgroup
// size covers proportionally more items per cell.
//
// If a dimension is not used, it should have a size of 1. Dimensions below 1
// are clamped to 1 at dispatch, so a degenerate grid runs a single work-item
// rather than failing.
type Grid struct {
	X int
	Y int
	Z int
}

// norm returns the grid's dimensions with every dimension at least one unit
// long.
func (g Grid) norm() (uint32, uint32, uint32) {
	x, y, z := g.X, g.Y, g.Z
	if x < 1 {
		x = 1
	}
	if y < 1 {
		y = 1
	}
	if z < 1 {
		z = 1
	}
	return uint32(x), uint32(y), uint32(z)
}
