package bhtsne

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/barneshut"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// particle2 is an embedded point in a plane. Every point has unit mass, so
// aggregate masses are point counts.
type particle2 struct {
	index int
	pos   r2.Vec
}

func (p particle2) Coord2() r2.Vec { return p.pos }
func (p particle2) Mass() float64  { return 1 }

// planeForceTree wraps gonum's quadtree for two-dimensional embeddings.
type planeForceTree struct {
	y         []float64
	particles []barneshut.Particle2
	plane     *barneshut.Plane
}

func newPlaneForceTree(y *mat.Dense) (*planeForceTree, error) {
	n, _ := y.Dims()
	data := flatten(y)
	particles := make([]barneshut.Particle2, n)
	for i := range particles {
		particles[i] = particle2{index: i, pos: r2.Vec{X: data[2*i], Y: data[2*i+1]}}
	}
	plane, err := barneshut.NewPlane(particles)
	if err != nil {
		return nil, err
	}
	return &planeForceTree{y: data, particles: particles, plane: plane}, nil
}

func (t *planeForceTree) EdgeForces(p *SparseAffinity, posF *mat.Dense, start, end int) {
	edgeForces(t.y, 2, p, posF, start, end)
}

func (t *planeForceTree) NonEdgeForces(i int, theta float64, negRow []float64) float64 {
	var sumQ float64
	f := t.plane.ForceOn(t.particles[i], theta, func(p1, p2 barneshut.Particle2, _, m2 float64, v r2.Vec) r2.Vec {
		if p2 != nil && p2.(particle2).index == p1.(particle2).index {
			return r2.Vec{}
		}
		// v points from p1 to the mass center; repulsion points away.
		q := 1 / (1 + r2.Norm2(v))
		sumQ += m2 * q
		return r2.Scale(-m2*q*q, v)
	})
	negRow[0] += f.X
	negRow[1] += f.Y
	return sumQ
}

// particle3 is an embedded point in a volume.
type particle3 struct {
	index int
	pos   r3.Vec
}

func (p particle3) Coord3() r3.Vec { return p.pos }
func (p particle3) Mass() float64  { return 1 }

// volumeForceTree wraps gonum's octree for three-dimensional embeddings.
type volumeForceTree struct {
	y         []float64
	particles []barneshut.Particle3
	volume    *barneshut.Volume
}

func newVolumeForceTree(y *mat.Dense) (*volumeForceTree, error) {
	n, _ := y.Dims()
	data := flatten(y)
	particles := make([]barneshut.Particle3, n)
	for i := range particles {
		particles[i] = particle3{index: i, pos: r3.Vec{X: data[3*i], Y: data[3*i+1], Z: data[3*i+2]}}
	}
	volume, err := barneshut.NewVolume(particles)
	if err != nil {
		return nil, err
	}
	return &volumeForceTree{y: data, particles: particles, volume: volume}, nil
}

func (t *volumeForceTree) EdgeForces(p *SparseAffinity, posF *mat.Dense, start, end int) {
	edgeForces(t.y, 3, p, posF, start, end)
}

func (t *volumeForceTree) NonEdgeForces(i int, theta float64, negRow []float64) float64 {
	var sumQ float64
	f := t.volume.ForceOn(t.particles[i], theta, func(p1, p2 barneshut.Particle3, _, m2 float64, v r3.Vec) r3.Vec {
		if p2 != nil && p2.(particle3).index == p1.(particle3).index {
			return r3.Vec{}
		}
		q := 1 / (1 + r3.Norm2(v))
		sumQ += m2 * q
		return r3.Scale(-m2*q*q, v)
	})
	negRow[0] += f.X
	negRow[1] += f.Y
	negRow[2] += f.Z
	return sumQ
}

// BarnesHutBuilder returns a TreeBuilder backed by gonum's quadtree (two
// dimensions) or octree (three dimensions).
func BarnesHutBuilder() TreeBuilder {
	return func(y *mat.Dense) (ForceTree, error) {
		switch _, dims := y.Dims(); dims {
		case 2:
			t, err := newPlaneForceTree(y)
			if err != nil {
				return nil, err
			}
			return t, nil
		case 3:
			t, err := newVolumeForceTree(y)
			if err != nil {
				return nil, err
			}
			return t, nil
		default:
			return nil, fmt.Errorf("bhtsne: barnes-hut tree needs 2 or 3 dimensions, got %d", dims)
		}
	}
}
