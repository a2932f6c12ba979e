// Grid ↔ world coordinate conversion. The grid origin is the mercator
// (EPSG:3857) position of the minimum corner; cells are CellM meters wide.
package grid

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// CellToLonLat returns the WGS84 longitude/latitude of a cell's center.
func (g *Grid) CellToLonLat(iy, ix int) (lon, lat float64) {
	x := g.OriginX + (float64(ix)+0.5)*float64(g.CellM)
	y := g.OriginY + (float64(iy)+0.5)*float64(g.CellM)
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p[0], p[1]
}

// LonLatToCell projects a WGS84 coordinate onto the grid. ok is false when
// the point falls outside the raster.
func (g *Grid) LonLatToCell(lon, lat float64) (iy, ix int, ok bool) {
	p := project.WGS84.ToMercator(orb.Point{lon, lat})
	ix = int((p[0] - g.OriginX) / float64(g.CellM))
	iy = int((p[1] - g.OriginY) / float64(g.CellM))
	if !g.InBounds(iy, ix) {
		return 0, 0, false
	}
	return iy, ix, true
}
