package ecoscan

import (
	"image"
	"math"
	"sort"

	xdraw "golang.org/x/image/draw"
)

// grayImage is a dense 8-bit luminance buffer with origin at (0,0).
type grayImage struct {
	w, h int
	pix  []uint8
}

func (g *grayImage) at(x, y int) int {
	// Replicate border pixels.
	x = max(0, min(x, g.w-1))
	y = max(0, min(y, g.h-1))
	return int(g.pix[y*g.w+x])
}

// toGray converts img to luminance using the standard library gray model.
func toGray(img image.Image) *grayImage {
	b := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return &grayImage{w: dst.Rect.Dx(), h: dst.Rect.Dy(), pix: dst.Pix}
}

// downscale shrinks img so that its longest side is at most maxDim.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	scale := float64(maxDim) / float64(max(w, h))
	dw := max(1, int(math.Round(float64(w)*scale)))
	dh := max(1, int(math.Round(float64(h)*scale)))
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// laplacian returns the 4-neighbour Laplacian response of every pixel.
func laplacian(g *grayImage) []float64 {
	out := make([]float64, g.w*g.h)
	for y := range g.h {
		for x := range g.w {
			c := g.at(x, y)
			out[y*g.w+x] = float64(g.at(x-1, y) + g.at(x+1, y) + g.at(x, y-1) + g.at(x, y+1) - 4*c)
		}
	}
	return out
}

// otsuThreshold returns the gray level t maximising between-class variance
// for the split [0..t] / [t+1..255].
func otsuThreshold(g *grayImage) int {
	var hist [256]int
	for _, v := range g.pix {
		hist[v]++
	}
	total := len(g.pix)
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var (
		sumB   float64
		wB     int
		best   float64
		thresh int
	)
	for t := range 256 {
		wB += hist[t]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / float64(wB)
		mF := (sumAll - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = t
		}
	}
	return thresh
}

// binarize marks pixels at or below the Otsu threshold as foreground and
// flips the polarity when the foreground would be the majority, so dark
// text on light paper and light text on dark paper both end up as ink.
func binarize(g *grayImage) []bool {
	t := otsuThreshold(g)
	mask := make([]bool, len(g.pix))
	fg := 0
	for i, v := range g.pix {
		if int(v) <= t {
			mask[i] = true
			fg++
		}
	}
	if fg*2 > len(mask) {
		for i := range mask {
			mask[i] = !mask[i]
		}
	}
	return mask
}

// dilateHorizontal grows foreground runs by r pixels left and right,
// joining neighbouring glyphs into word blobs.
func dilateHorizontal(mask []bool, w, h, r int) []bool {
	out := make([]bool, len(mask))
	for y := range h {
		row := mask[y*w : (y+1)*w]
		count := 0
		for x := 0; x < min(r, w); x++ {
			if row[x] {
				count++
			}
		}
		for x := range w {
			if add := x + r; add < w && row[add] {
				count++
			}
			if drop := x - r - 1; drop >= 0 && row[drop] {
				count--
			}
			out[y*w+x] = count > 0
		}
	}
	return out
}

// component is one 8-connected foreground region.
type component struct {
	id                     int32
	minX, minY, maxX, maxY int
	area                   int         // foreground pixel count
	start                  image.Point // first pixel in raster order
}

func (c *component) width() int  { return c.maxX - c.minX + 1 }
func (c *component) height() int { return c.maxY - c.minY + 1 }
func (c *component) boxArea() int {
	return c.width() * c.height()
}
func (c *component) aspect() float64 {
	return float64(c.width()) / float64(c.height())
}
func (c *component) fill() float64 {
	return float64(c.area) / float64(c.boxArea())
}

var neighbours8 = [8]image.Point{
	{-1, 0}, {-1, -1}, {0, -1}, {1, -1}, {1, 0}, {1, 1}, {0, 1}, {-1, 1},
}

// labelComponents assigns a 1-based component id to every foreground pixel.
func labelComponents(mask []bool, w, h int) ([]int32, []component) {
	labels := make([]int32, len(mask))
	var comps []component
	stack := make([]int, 0, 64)

	for i, fg := range mask {
		if !fg || labels[i] != 0 {
			continue
		}
		id := int32(len(comps) + 1)
		sx, sy := i%w, i/w
		c := component{id: id, minX: sx, minY: sy, maxX: sx, maxY: sy, start: image.Pt(sx, sy)}

		labels[i] = id
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%w, p/w
			c.area++
			c.minX, c.maxX = min(c.minX, px), max(c.maxX, px)
			c.minY, c.maxY = min(c.minY, py), max(c.maxY, py)

			for _, d := range neighbours8 {
				nx, ny := px+d.X, py+d.Y
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				n := ny*w + nx
				if mask[n] && labels[n] == 0 {
					labels[n] = id
					stack = append(stack, n)
				}
			}
		}
		comps = append(comps, c)
	}
	return labels, comps
}

// traceBoundary follows the outer boundary of component c clockwise using
// Moore-neighbour tracing. c.start is the raster-first pixel, so its west
// neighbour is guaranteed to be outside the component.
func traceBoundary(labels []int32, w, h int, c *component) []image.Point {
	inside := func(p image.Point) bool {
		return p.X >= 0 && p.Y >= 0 && p.X < w && p.Y < h && labels[p.Y*w+p.X] == c.id
	}

	limit := 4*c.area + 8
	cur := c.start
	back := 0 // direction from cur to the backtrack pixel (west)
	pts := []image.Point{cur}

	for len(pts) < limit {
		next := -1
		for k := 1; k <= 8; k++ {
			d := (back + k) % 8
			if inside(cur.Add(neighbours8[d])) {
				next = d
				break
			}
		}
		if next < 0 {
			break // isolated pixel
		}
		prevCheck := cur.Add(neighbours8[(next+7)%8])
		cur = cur.Add(neighbours8[next])
		back = directionTo(cur, prevCheck)
		if cur == c.start {
			break
		}
		pts = append(pts, cur)
	}
	return pts
}

// directionTo returns the neighbours8 index pointing from a to its
// neighbour b.
func directionTo(a, b image.Point) int {
	d := b.Sub(a)
	for i, n := range neighbours8 {
		if n == d {
			return i
		}
	}
	return 0
}

// approxPolygon simplifies a closed contour with Douglas-Peucker at
// tolerance eps, splitting the ring at its first point and the point
// farthest from it.
func approxPolygon(ring []image.Point, eps float64) []image.Point {
	if len(ring) < 4 {
		return ring
	}
	far, best := 0, -1.0
	for i, p := range ring {
		if d := dist(ring[0], p); d > best {
			far, best = i, d
		}
	}
	if far == 0 {
		return ring[:1]
	}

	first := douglasPeucker(ring[:far+1], eps)
	second := douglasPeucker(append(append([]image.Point{}, ring[far:]...), ring[0]), eps)
	out := append([]image.Point{}, first[:len(first)-1]...)
	return append(out, second[:len(second)-1]...)
}

func douglasPeucker(pts []image.Point, eps float64) []image.Point {
	if len(pts) < 3 {
		return pts
	}
	a, b := pts[0], pts[len(pts)-1]
	idx, dmax := 0, 0.0
	for i := 1; i < len(pts)-1; i++ {
		if d := segmentDistance(pts[i], a, b); d > dmax {
			idx, dmax = i, d
		}
	}
	if dmax <= eps {
		return []image.Point{a, b}
	}
	left := douglasPeucker(pts[:idx+1], eps)
	right := douglasPeucker(pts[idx:], eps)
	return append(left[:len(left)-1], right...)
}

func segmentDistance(p, a, b image.Point) float64 {
	dx, dy := float64(b.X-a.X), float64(b.Y-a.Y)
	if dx == 0 && dy == 0 {
		return dist(p, a)
	}
	return math.Abs(dy*float64(p.X-a.X)-dx*float64(p.Y-a.Y)) / math.Hypot(dx, dy)
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}

func perimeter(ring []image.Point) float64 {
	var p float64
	for i := range ring {
		p += dist(ring[i], ring[(i+1)%len(ring)])
	}
	return p
}

// isConvexQuad reports whether the four points form a convex polygon.
func isConvexQuad(q []image.Point) bool {
	if len(q) != 4 {
		return false
	}
	sign := 0
	for i := range 4 {
		a, b, c := q[i], q[(i+1)%4], q[(i+2)%4]
		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross > 0 && sign < 0, cross < 0 && sign > 0:
			return false
		case cross > 0:
			sign = 1
		case cross < 0:
			sign = -1
		}
	}
	return sign != 0
}

const (
	sobelEdgeThreshold = 100
	maxEdgePoints      = 40000
	houghRhoWindow     = 8
	houghThetaWindow   = 5
	maxHoughLines      = 200
)

// sobelEdges returns coordinates of pixels whose Sobel gradient magnitude
// (L1) reaches sobelEdgeThreshold.
func sobelEdges(g *grayImage) []image.Point {
	var pts []image.Point
	for y := range g.h {
		for x := range g.w {
			gx := -g.at(x-1, y-1) - 2*g.at(x-1, y) - g.at(x-1, y+1) +
				g.at(x+1, y-1) + 2*g.at(x+1, y) + g.at(x+1, y+1)
			gy := -g.at(x-1, y-1) - 2*g.at(x, y-1) - g.at(x+1, y-1) +
				g.at(x-1, y+1) + 2*g.at(x, y+1) + g.at(x+1, y+1)
			if abs(gx)+abs(gy) >= sobelEdgeThreshold {
				pts = append(pts, image.Pt(x, y))
			}
		}
	}
	return pts
}

// houghLines counts distinct straight lines supported by at least minVotes
// edge points, using a 1px x 1deg accumulator and greedy suppression of
// neighbouring peaks.
func houghLines(edges []image.Point, w, h int, minVotes float64) int {
	if len(edges) == 0 {
		return 0
	}
	stride := 1
	if len(edges) > maxEdgePoints {
		stride = (len(edges) + maxEdgePoints - 1) / maxEdgePoints
	}
	threshold := int(math.Ceil(minVotes / float64(stride)))

	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))
	rhos := 2*diag + 1
	const thetas = 180
	var cosT, sinT [thetas]float64
	for t := range thetas {
		rad := float64(t) * math.Pi / thetas
		cosT[t], sinT[t] = math.Cos(rad), math.Sin(rad)
	}

	acc := make([]int32, thetas*rhos)
	for i := 0; i < len(edges); i += stride {
		p := edges[i]
		for t := range thetas {
			r := int(math.Round(float64(p.X)*cosT[t]+float64(p.Y)*sinT[t])) + diag
			acc[t*rhos+r]++
		}
	}

	type peak struct{ theta, rho, votes int }
	var peaks []peak
	for t := range thetas {
		for r := range rhos {
			if v := int(acc[t*rhos+r]); v >= threshold {
				peaks = append(peaks, peak{t, r, v})
			}
		}
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].votes > peaks[j].votes })

	var kept []peak
	for _, p := range peaks {
		dup := false
		for _, k := range kept {
			dt := abs(p.theta - k.theta)
			dt = min(dt, thetas-dt)
			if dt <= houghThetaWindow && abs(p.rho-k.rho) <= houghRhoWindow {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, p)
			if len(kept) >= maxHoughLines {
				break
			}
		}
	}
	return len(kept)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
