package trivector

import "math"

const eps = 1e-9

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		if a[i] != 0 && b[i] != 0 {
			s += a[i] * b[i]
		}
	}
	return s
}

// independent returns the indices of a maximal linearly independent subset
// of vs, scanning in order.
func independent(vs [][]float64) []int {
	var basis [][]float64
	var pivots []int
	var keep []int
	for i, v := range vs {
		r := append([]float64(nil), v...)
		for j, b := range basis {
			if f := r[pivots[j]]; f != 0 {
				for k := range r {
					r[k] -= f * b[k]
				}
			}
		}
		p, best := -1, eps
		for k, x := range r {
			if math.Abs(x) > best {
				p, best = k, math.Abs(x)
			}
		}
		if p < 0 {
			continue
		}
		scale := r[p]
		for k := range r {
			r[k] /= scale
		}
		// keep earlier rows reduced against the new pivot
		for j, b := range basis {
			if f := b[p]; f != 0 {
				for k := range b {
					b[k] -= f * r[k]
				}
				basis[j] = b
			}
		}
		basis = append(basis, r)
		pivots = append(pivots, p)
		keep = append(keep, i)
	}
	return keep
}

// rank is the dimension of span(vs).
func rank(vs [][]float64) int { return len(independent(vs)) }

// nullVector returns a nonzero α with Σ αᵢ·colsᵢ = 0, or nil when the
// columns are independent.
func nullVector(cols [][]float64) []float64 {
	k := len(cols)
	if k == 0 {
		return nil
	}
	// rows restricted to the joint support
	var m [][]float64
	for c := 0; c < Ambient; c++ {
		row := make([]float64, k)
		nz := false
		for j, col := range cols {
			row[j] = col[c]
			if row[j] != 0 {
				nz = true
			}
		}
		if nz {
			m = append(m, row)
		}
	}

	pivotCol := make([]int, 0, k)
	isPivot := make([]bool, k)
	r := 0
	for c := 0; c < k && r < len(m); c++ {
		best, bi := eps, -1
		for i := r; i < len(m); i++ {
			if a := math.Abs(m[i][c]); a > best {
				best, bi = a, i
			}
		}
		if bi < 0 {
			continue
		}
		m[r], m[bi] = m[bi], m[r]
		scale := m[r][c]
		for j := range m[r] {
			m[r][j] /= scale
		}
		for i := range m {
			if i == r || m[i][c] == 0 {
				continue
			}
			f := m[i][c]
			for j := range m[i] {
				m[i][j] -= f * m[r][j]
			}
		}
		pivotCol = append(pivotCol, c)
		isPivot[c] = true
		r++
	}

	free := -1
	for c := 0; c < k; c++ {
		if !isPivot[c] {
			free = c
			break
		}
	}
	if free < 0 {
		return nil
	}
	alpha := make([]float64, k)
	alpha[free] = 1
	for row, c := range pivotCol {
		alpha[c] = -m[row][free]
	}
	return alpha
}

func combine(vs [][]float64, coeffs []float64) []float64 {
	out := make([]float64, Ambient)
	for i, v := range vs {
		if coeffs[i] == 0 {
			continue
		}
		for k, x := range v {
			out[k] += coeffs[i] * x
		}
	}
	return out
}

func isZero(v []float64) bool {
	for _, x := range v {
		if math.Abs(x) > eps {
			return false
		}
	}
	return true
}
