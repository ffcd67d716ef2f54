// Package trivector checks that safety content spans a subspace disjoint
// from semantic and structural content.
package trivector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/danielpatrickdp/aisp-verify/internal/ast"
)

// Discharger proves span(a) ∩ span(b) = {0} with an external decision
// procedure. It returns true only when the claim is proven.
type Discharger interface {
	DisjointSpans(ctx context.Context, a, b [][]float64) (bool, error)
}

// DefaultMaxSMTSupport bounds the coordinates a pair may touch before the
// solver is skipped in favour of rank decomposition.
const DefaultMaxSMTSupport = 256

// Verifier runs the orthogonality checks.
type Verifier struct {
	SMT           Discharger
	MaxSMTSupport int
	Logger        *slog.Logger
}

// checkedPairs lists the pairs in report order; the first is permitted to
// overlap.
var checkedPairs = [...]struct {
	a, b      Kind
	permitted bool
}{
	{Semantic, Structural, true},
	{Semantic, Safety, false},
	{Structural, Safety, false},
}

// #region verify
// Verify builds the spaces of doc and checks every pair.
func (v *Verifier) Verify(ctx context.Context, doc *ast.Document) Report {
	return v.VerifySpaces(ctx, Build(doc))
}

// VerifySpaces checks every pair of prebuilt spaces.
func (v *Verifier) VerifySpaces(ctx context.Context, sp *Spaces) Report {
	rep := Report{Dims: map[Kind]int{}}
	for _, k := range []Kind{Semantic, Structural, Safety} {
		rep.Dims[k] = rank(sp.Get(k).Generators)
	}
	for _, p := range checkedPairs {
		res := v.checkPair(ctx, sp.Get(p.a), sp.Get(p.b))
		res.Permitted = p.permitted
		if res.Violation() && v.Logger != nil {
			v.Logger.Warn("orthogonality violation", "a", p.a, "b", p.b, "dim", res.Intersection, "method", res.Method)
		}
		rep.Pairs = append(rep.Pairs, res)
	}
	return rep
}

// ErrDimension reports a generator that does not live in the ambient space.
var ErrDimension = errors.New("generator dimension mismatch")

// CheckPair decides whether two spaces intersect only at the origin using
// inner products and, failing that, rank decomposition. Every generator
// must have exactly Ambient components.
func CheckPair(a, b Space) (PairResult, error) {
	for _, s := range []*Space{&a, &b} {
		for i, g := range s.Generators {
			if len(g) != Ambient {
				return PairResult{}, fmt.Errorf("%w: %s generator %d has %d components, want %d", ErrDimension, s.Kind, i, len(g), Ambient)
			}
		}
	}
	var v Verifier
	return v.checkPair(context.Background(), &a, &b), nil
}

func (v *Verifier) checkPair(ctx context.Context, a, b *Space) PairResult {
	res := PairResult{A: a.Kind, B: b.Kind}
	if len(a.Generators) == 0 || len(b.Generators) == 0 {
		res.Orthogonal, res.Method = true, MethodTrivial
		return res
	}
	if innerProductsVanish(a.Generators, b.Generators) {
		res.Orthogonal, res.Method = true, MethodInnerProduct
		return res
	}
	if v.SMT != nil && support(a.Generators, b.Generators) <= v.maxSupport() {
		ok, err := v.SMT.DisjointSpans(ctx, a.Generators, b.Generators)
		if err != nil && v.Logger != nil {
			v.Logger.Debug("smt discharge failed, using rank", "a", a.Kind, "b", b.Kind, "error", err)
		}
		if err == nil && ok {
			res.Orthogonal, res.Method = true, MethodSMT
			return res
		}
	}
	rankDecompose(a, b, &res)
	return res
}

func (v *Verifier) maxSupport() int {
	if v.MaxSMTSupport > 0 {
		return v.MaxSMTSupport
	}
	return DefaultMaxSMTSupport
}

// #endregion verify

// #region methods
func innerProductsVanish(a, b [][]float64) bool {
	for _, x := range a {
		for _, y := range b {
			if math.Abs(dot(x, y)) > eps {
				return false
			}
		}
	}
	return true
}

func support(a, b [][]float64) int {
	seen := make([]bool, Ambient)
	n := 0
	for _, set := range [][][]float64{a, b} {
		for _, v := range set {
			for i, x := range v {
				if x != 0 && !seen[i] {
					seen[i] = true
					n++
				}
			}
		}
	}
	return n
}

// rankDecompose uses dim(A∩B) = rank A + rank B − rank[A|B] and, when the
// intersection is nonzero, reports a witness vector in both spans.
func rankDecompose(a, b *Space, res *PairResult) {
	res.Method = MethodRank
	ia := independent(a.Generators)
	ib := independent(b.Generators)

	cols := make([][]float64, 0, len(ia)+len(ib))
	for _, i := range ia {
		cols = append(cols, a.Generators[i])
	}
	for _, i := range ib {
		neg := make([]float64, Ambient)
		for k, x := range b.Generators[i] {
			neg[k] = -x
		}
		cols = append(cols, neg)
	}
	res.Intersection = len(ia) + len(ib) - rank(cols)
	if res.Intersection == 0 {
		res.Orthogonal = true
		return
	}

	alpha := nullVector(cols)
	if alpha == nil {
		return
	}
	basisA := make([][]float64, len(ia))
	for j, i := range ia {
		basisA[j] = a.Generators[i]
	}
	res.Witness = combine(basisA, alpha[:len(ia)])
	for j, i := range ia {
		if math.Abs(alpha[j]) > eps {
			res.Shared = append(res.Shared, a.Sources[i])
		}
	}
	for j, i := range ib {
		if math.Abs(alpha[len(ia)+j]) > eps {
			res.Shared = append(res.Shared, b.Sources[i])
		}
	}
}

// #endregion methods
