package query

import (
	"math"

	"github.com/turtacn/motivequery/internal/domain/spatial"
	"github.com/turtacn/motivequery/pkg/errors"
)

const evdEpsilon = 0x1p-52

// eigen3 is the scratch space of a symmetric 3x3 eigen-decomposition.
// After decompose, values holds the eigenvalues in ascending order and
// column j of vectors the unit eigenvector of values[j].
type eigen3 struct {
	vectors [3][3]float64
	values  [3]float64
	off     [3]float64
	scatter [3][3]float64
	maxIter int
}

func newEigen3(maxIter int) *eigen3 {
	if maxIter <= 0 {
		maxIter = 1000
	}
	return &eigen3{maxIter: maxIter}
}

// decompose factors the symmetric matrix a.  Only a is read; the result
// overwrites the previous one.
func (e *eigen3) decompose(a [3][3]float64) error {
	e.vectors = a
	e.tridiagonalize()
	if err := e.diagonalize(); err != nil {
		return err
	}
	e.sort()
	return nil
}

// tridiagonalize reduces the matrix to tridiagonal form by Householder
// reflections, accumulating the transformations in vectors.
func (e *eigen3) tridiagonalize() {
	const n = 3
	v, d, off := &e.vectors, &e.values, &e.off
	for j := 0; j < n; j++ {
		d[j] = v[n-1][j]
	}
	for i := n - 1; i > 0; i-- {
		scale, h := 0.0, 0.0
		for k := 0; k < i; k++ {
			scale += math.Abs(d[k])
		}
		if scale == 0 {
			off[i] = d[i-1]
			for j := 0; j < i; j++ {
				d[j] = v[i-1][j]
				v[i][j] = 0
				v[j][i] = 0
			}
		} else {
			for k := 0; k < i; k++ {
				d[k] /= scale
				h += d[k] * d[k]
			}
			f := d[i-1]
			g := math.Sqrt(h)
			if f > 0 {
				g = -g
			}
			off[i] = scale * g
			h -= f * g
			d[i-1] = f - g
			for j := 0; j < i; j++ {
				off[j] = 0
			}
			for j := 0; j < i; j++ {
				f = d[j]
				v[j][i] = f
				g = off[j] + v[j][j]*f
				for k := j + 1; k <= i-1; k++ {
					g += v[k][j] * d[k]
					off[k] += v[k][j] * f
				}
				off[j] = g
			}
			f = 0
			for j := 0; j < i; j++ {
				off[j] /= h
				f += off[j] * d[j]
			}
			hh := f / (h + h)
			for j := 0; j < i; j++ {
				off[j] -= hh * d[j]
			}
			for j := 0; j < i; j++ {
				f = d[j]
				g = off[j]
				for k := j; k <= i-1; k++ {
					v[k][j] -= f*off[k] + g*d[k]
				}
				d[j] = v[i-1][j]
				v[i][j] = 0
			}
		}
		d[i] = h
	}

	for i := 0; i < n-1; i++ {
		v[n-1][i] = v[i][i]
		v[i][i] = 1
		h := d[i+1]
		if h != 0 {
			for k := 0; k <= i; k++ {
				d[k] = v[k][i+1] / h
			}
			for j := 0; j <= i; j++ {
				g := 0.0
				for k := 0; k <= i; k++ {
					g += v[k][i+1] * v[k][j]
				}
				for k := 0; k <= i; k++ {
					v[k][j] -= g * d[k]
				}
			}
		}
		for k := 0; k <= i; k++ {
			v[k][i+1] = 0
		}
	}
	for j := 0; j < n; j++ {
		d[j] = v[n-1][j]
		v[n-1][j] = 0
	}
	v[n-1][n-1] = 1
	off[0] = 0
}

// diagonalize runs the implicit QL iteration on the tridiagonal form.
func (e *eigen3) diagonalize() error {
	const n = 3
	v, d, off := &e.vectors, &e.values, &e.off
	for i := 1; i < n; i++ {
		off[i-1] = off[i]
	}
	off[n-1] = 0

	f, tst1 := 0.0, 0.0
	for l := 0; l < n; l++ {
		tst1 = math.Max(tst1, math.Abs(d[l])+math.Abs(off[l]))
		m := l
		for m < n-1 && math.Abs(off[m]) > evdEpsilon*tst1 {
			m++
		}
		if m > l {
			for iter := 0; ; iter++ {
				if iter >= e.maxIter {
					return errors.NotConverging("Not converging.")
				}
				g := d[l]
				p := (d[l+1] - g) / (2 * off[l])
				r := math.Hypot(p, 1)
				if p < 0 {
					r = -r
				}
				d[l] = off[l] / (p + r)
				d[l+1] = off[l] * (p + r)
				dl1 := d[l+1]
				h := g - d[l]
				for i := l + 2; i < n; i++ {
					d[i] -= h
				}
				f += h

				p = d[m]
				c, c2, c3 := 1.0, 1.0, 1.0
				el1 := off[l+1]
				s, s2 := 0.0, 0.0
				for i := m - 1; i >= l; i-- {
					c3 = c2
					c2 = c
					s2 = s
					g = c * off[i]
					h = c * p
					r = math.Hypot(p, off[i])
					off[i+1] = s * r
					s = off[i] / r
					c = p / r
					p = c*d[i] - s*g
					d[i+1] = h + s*(c*g+s*d[i])
					for k := 0; k < n; k++ {
						h = v[k][i+1]
						v[k][i+1] = s*v[k][i] + c*h
						v[k][i] = c*v[k][i] - s*h
					}
				}
				p = -s * s2 * c3 * el1 * off[l] / dl1
				off[l] = s * p
				d[l] = c * p
				if math.Abs(off[l]) <= evdEpsilon*tst1 {
					break
				}
			}
		}
		d[l] += f
		off[l] = 0
	}
	return nil
}

func (e *eigen3) sort() {
	const n = 3
	for i := 0; i < n-1; i++ {
		k := i
		for j := i + 1; j < n; j++ {
			if e.values[j] < e.values[k] {
				k = j
			}
		}
		if k == i {
			continue
		}
		e.values[i], e.values[k] = e.values[k], e.values[i]
		for r := 0; r < n; r++ {
			e.vectors[r][i], e.vectors[r][k] = e.vectors[r][k], e.vectors[r][i]
		}
	}
}

// vector returns column j of the eigenvector matrix.
func (e *eigen3) vector(j int) spatial.Vec3 {
	return spatial.V(e.vectors[0][j], e.vectors[1][j], e.vectors[2][j])
}

// resetScatter clears the scatter accumulator.
func (e *eigen3) resetScatter() { e.scatter = [3][3]float64{} }

// accumulate adds the outer product of p-center to the scatter matrix.
func (e *eigen3) accumulate(p, center spatial.Vec3) {
	q := p.Sub(center)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			e.scatter[i][j] += q.At(i) * q.At(j)
		}
	}
}

// normal factors the accumulated scatter matrix and returns the unit normal
// of the best-fit plane, oriented so that its z component is not negative.
func (e *eigen3) normal() (spatial.Vec3, error) {
	if err := e.decompose(e.scatter); err != nil {
		return spatial.Vec3{}, err
	}
	n := e.vector(0)
	if n.At(2) < 0 {
		n = n.Scale(-1)
	}
	return n, nil
}
