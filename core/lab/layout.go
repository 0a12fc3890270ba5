package lab

import (
	"math"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/cyberlab/core"
)

// DefaultLayout is used when no layout is configured.
var DefaultLayout = core.LayoutConfig{OriginX: 400, OriginY: 300, CellSize: 150}

// AssignDefaultPositions places devices that have no stored position on a grid
// centered on the layout origin, with ceil(sqrt(n)) columns. A device's slot is
// its index in the full list, so placed devices keep their slot empty.
// Devices with a stored position are returned unchanged; the input is not modified.
func AssignDefaultPositions(devices []Device, layout core.LayoutConfig) []Device {
	placed := make([]Device, len(devices))
	copy(placed, devices)

	n := len(devices)
	if n == 0 {
		return placed
	}
	if layout.CellSize <= 0 {
		layout.CellSize = DefaultLayout.CellSize
	}

	cols := int(math.Ceil(math.Sqrt(float64(n))))
	rows := int(math.Ceil(float64(n) / float64(cols)))
	offsetX := float64(cols-1) / 2
	offsetY := float64(rows-1) / 2

	for i := range placed {
		if placed[i].HasPosition() {
			continue
		}
		col, row := i%cols, i/cols
		x := float64(layout.OriginX) + (float64(col)-offsetX)*float64(layout.CellSize)
		y := float64(layout.OriginY) + (float64(row)-offsetY)*float64(layout.CellSize)
		placed[i].X = null.IntFrom(int(math.Round(x)))
		placed[i].Y = null.IntFrom(int(math.Round(y)))
	}
	return placed
}
