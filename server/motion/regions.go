package motion

import (
	"github.com/vigilcam/vigil/pkg/geom"
)

// Region is one connected patch of foreground pixels.
// Area is the foreground pixel count of the component, not the bounding box
// area. That makes small speckle cheap to reject even when it is spread out.
type Region struct {
	Box  geom.Rect `json:"box"`
	Area int       `json:"area"`
}

// ExtractRegions groups 8-connected foreground pixels of mask into regions,
// discarding any region whose pixel count is below minArea.
// Components are seeded in row-major scan order, so the output ordering is
// deterministic for identical masks. Returns an empty slice, never an error,
// when nothing qualifies.
func ExtractRegions(mask *Mask, minArea int) []Region {
	regions := []Region{}
	if mask == nil || mask.Width == 0 || mask.Height == 0 {
		return regions
	}

	w := mask.Width
	h := mask.Height
	visited := make([]bool, w*h)
	// Explicit stack instead of recursion, so a frame-sized blob can't blow
	// the goroutine stack.
	stack := make([]int32, 0, 256)

	for seed := range mask.Fg {
		if mask.Fg[seed] == 0 || visited[seed] {
			continue
		}
		visited[seed] = true
		stack = append(stack[:0], int32(seed))
		box := geom.Rect{X: seed % w, Y: seed / w, Width: 1, Height: 1}
		area := 0
		for len(stack) > 0 {
			idx := int(stack[len(stack)-1])
			stack = stack[:len(stack)-1]
			x := idx % w
			y := idx / w
			area++
			box.ExpandToFit(x, y)
			for dy := -1; dy <= 1; dy++ {
				ny := y + dy
				if ny < 0 || ny >= h {
					continue
				}
				for dx := -1; dx <= 1; dx++ {
					nx := x + dx
					if nx < 0 || nx >= w {
						continue
					}
					nidx := ny*w + nx
					if mask.Fg[nidx] != 0 && !visited[nidx] {
						visited[nidx] = true
						stack = append(stack, int32(nidx))
					}
				}
			}
		}
		if area >= minArea {
			regions = append(regions, Region{Box: box, Area: area})
		}
	}
	return regions
}

// TotalArea sums the pixel areas of all regions.
func TotalArea(regions []Region) int {
	total := 0
	for _, r := range regions {
		total += r.Area
	}
	return total
}

// Boxes extracts the bounding boxes of regions, for annotation.
func Boxes(regions []Region) []geom.Rect {
	boxes := make([]geom.Rect, len(regions))
	for i, r := range regions {
		boxes[i] = r.Box
	}
	return boxes
}
