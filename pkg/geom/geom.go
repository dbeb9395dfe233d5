package geom

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) Center() Point {
	return Point{
		X: r.X + r.Width/2,
		Y: r.Y + r.Height/2,
	}
}

// ExpandToFit grows the rectangle so that it includes the pixel (x,y)
func (r *Rect) ExpandToFit(x, y int) {
	if x < r.X {
		r.Width += r.X - x
		r.X = x
	} else if x >= r.X+r.Width {
		r.Width = x - r.X + 1
	}
	if y < r.Y {
		r.Height += r.Y - y
		r.Y = y
	} else if y >= r.Y+r.Height {
		r.Height = y - r.Y + 1
	}
}
