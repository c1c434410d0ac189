// Package field implements modular arithmetic in GF(p) for the
// two-point secret-sharing line, with p = 2^256 + 297. All values are
// arbitrary-precision; intermediates grow to 512 bits before
// reduction.
package field

import (
	"errors"
	"math/big"

	"github.com/BackendStack21/escrowmatch-go/core"
)

// ErrEqualX indicates two points with the same x-coordinate mod p; the
// slope between them is undefined and the pair must be rejected.
var ErrEqualX = errors.New("points share an x-coordinate")

var p = core.FieldPrime()

// Point is one secret-sharing point (x, y) on the line y = a*x + k.
type Point struct {
	X *big.Int
	Y *big.Int
}

// RealMod returns the canonical residue of v mod p, correct for
// negative inputs.
func RealMod(v *big.Int) *big.Int {
	r := new(big.Int).Mod(v, p)
	if r.Sign() < 0 {
		r.Add(r, p)
	}
	return r
}

// DeriveSlope computes the slope of the line through c1 and c2:
// (c2.y - c1.y) * (c2.x - c1.x)^-1 mod p. It returns ErrEqualX when
// the x-coordinates coincide mod p.
func DeriveSlope(c1, c2 Point) (*big.Int, error) {
	dx := RealMod(new(big.Int).Sub(c2.X, c1.X))
	if dx.Sign() == 0 {
		return nil, ErrEqualX
	}
	dy := RealMod(new(big.Int).Sub(c2.Y, c1.Y))
	inv := new(big.Int).ModInverse(dx, p)
	if inv == nil {
		// p is prime, so a nonzero dx always has an inverse. Kept as
		// a guard against a miswired modulus.
		return nil, ErrEqualX
	}
	slope := new(big.Int).Mul(dy, inv)
	return slope.Mod(slope, p), nil
}

// Intercept computes the line's y-intercept k = c.y - slope*c.x mod p,
// the shared secret of the matching set.
func Intercept(c Point, slope *big.Int) *big.Int {
	k := new(big.Int).Mul(slope, c.X)
	k.Sub(c.Y, k)
	return RealMod(k)
}
