package l4path

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/barpath/internal/vision"
)

// Cluster is a spatially coherent subset of one frame's points.
type Cluster struct {
	Points []vision.TrackedPoint
	cx, cy float64 // running centroid
}

// Centroid returns the mean position of the cluster's points.
func (c *Cluster) Centroid() (float64, float64) {
	xs, ys := c.coords()
	return stat.Mean(xs, nil), stat.Mean(ys, nil)
}

// Spread returns the horizontal and vertical extent of the cluster.
func (c *Cluster) Spread() (float64, float64) {
	xs, ys := c.coords()
	return floats.Max(xs) - floats.Min(xs), floats.Max(ys) - floats.Min(ys)
}

// Diagonal is the length of the cluster's bounding-box diagonal.
func (c *Cluster) Diagonal() float64 {
	sx, sy := c.Spread()
	return math.Hypot(sx, sy)
}

func (c *Cluster) coords() ([]float64, []float64) {
	xs := make([]float64, len(c.Points))
	ys := make([]float64, len(c.Points))
	for i, p := range c.Points {
		xs[i], ys[i] = p.X, p.Y
	}
	return xs, ys
}

func (c *Cluster) add(p vision.TrackedPoint) {
	n := float64(len(c.Points))
	c.cx = (c.cx*n + p.X) / (n + 1)
	c.cy = (c.cy*n + p.Y) / (n + 1)
	c.Points = append(c.Points, p)
}

// Clusters groups points incrementally in input order. Each point joins
// the first cluster whose running centroid is strictly closer than
// p.ClusterDistance, or starts a new cluster.
func Clusters(points []vision.TrackedPoint, p Params) []Cluster {
	var out []Cluster
	for _, pt := range points {
		joined := false
		for i := range out {
			if math.Hypot(pt.X-out[i].cx, pt.Y-out[i].cy) < p.ClusterDistance {
				out[i].add(pt)
				joined = true
				break
			}
		}
		if !joined {
			var c Cluster
			c.add(pt)
			out = append(out, c)
		}
	}
	return out
}

// Geometry is the frame centre and the largest possible distance from it,
// the reference for the centrality score.
type Geometry struct {
	CX, CY  float64
	MaxDist float64
}

// FrameGeometry uses the true frame when p knows it. Otherwise the frame
// is estimated as the points' bounding box plus 200px.
func FrameGeometry(points []vision.TrackedPoint, p Params) Geometry {
	var w, h float64
	if p.knownFrame() {
		w, h = float64(p.FrameWidth), float64(p.FrameHeight)
	} else {
		c := Cluster{Points: points}
		sx, sy := c.Spread()
		w, h = sx+200, sy+200
	}
	return Geometry{CX: w / 2, CY: h / 2, MaxDist: math.Hypot(w, h) / 2}
}

// Score rates one cluster against the frame's other clusters. total is the
// number of points in the frame. maxDiag is the largest bounding-box
// diagonal over all of the frame's clusters.
func Score(c *Cluster, total int, maxDiag float64, g Geometry, p Params) float64 {
	size := float64(len(c.Points)) / float64(total)

	mx, my := c.Centroid()
	centrality := 1 - math.Hypot(mx-g.CX, my-g.CY)/g.MaxDist
	centrality = math.Max(0, math.Min(1, centrality))

	sx, sy := c.Spread()
	var vertical float64
	if sy > 0 {
		vertical = math.Min(1, sy/math.Max(sx, 1))
	}

	var foreground float64
	if maxDiag > 0 {
		foreground = c.Diagonal() / maxDiag
	}

	return p.WeightSize*size +
		p.WeightCentrality*centrality +
		p.WeightVertical*vertical +
		p.WeightForeground*foreground
}

// Candidate picks the representative point for one frame's points before
// temporal smoothing. ok is false when points is empty.
func Candidate(points []vision.TrackedPoint, p Params) (x, y float64, ok bool) {
	if len(points) == 0 {
		return 0, 0, false
	}
	if len(points) <= p.SmallFrameMax {
		c := Cluster{Points: points}
		x, y = c.Centroid()
		return x, y, true
	}

	clusters := Clusters(points, p)
	g := FrameGeometry(points, p)
	var maxDiag float64
	for i := range clusters {
		maxDiag = math.Max(maxDiag, clusters[i].Diagonal())
	}

	best, bestScore := 0, -1.0
	for i := range clusters {
		if len(clusters[i].Points) < p.MinClusterSize {
			continue
		}
		s := Score(&clusters[i], len(points), maxDiag, g, p)
		if s > bestScore {
			best, bestScore = i, s
		}
	}
	tracef("frame %d: %d points, %d clusters, picked %d points (score %.3f)",
		points[0].Frame, len(points), len(clusters), len(clusters[best].Points), bestScore)

	x, y = clusters[best].Centroid()
	return x, y, true
}
