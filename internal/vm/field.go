package vm

import (
	"math/big"

	"github.com/funvibe/refssa/internal/typesystem"
)

// Modulus is the order of the BN254 scalar field.
var Modulus, _ = new(big.Int).SetString(
	"21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)

// reduce maps n into [0, Modulus).
func reduce(n *big.Int) *big.Int {
	return new(big.Int).Mod(n, Modulus)
}

func fieldAdd(a, b *big.Int) *big.Int { return reduce(new(big.Int).Add(a, b)) }
func fieldSub(a, b *big.Int) *big.Int { return reduce(new(big.Int).Sub(a, b)) }
func fieldMul(a, b *big.Int) *big.Int { return reduce(new(big.Int).Mul(a, b)) }

// fieldDiv multiplies by the inverse of b, which must be non-zero.
func fieldDiv(a, b *big.Int) *big.Int {
	inv := new(big.Int).ModInverse(b, Modulus)
	return reduce(new(big.Int).Mul(a, inv))
}

// intRange returns the inclusive bounds of an integer type.
func intRange(t typesystem.TInt) (lo, hi *big.Int) {
	one := big.NewInt(1)
	if t.Signed {
		hi = new(big.Int).Lsh(one, uint(t.Bits-1))
		lo = new(big.Int).Neg(hi)
		hi.Sub(hi, one)
		return lo, hi
	}
	hi = new(big.Int).Lsh(one, uint(t.Bits))
	return new(big.Int), hi.Sub(hi, one)
}

func inRange(n *big.Int, t typesystem.TInt) bool {
	lo, hi := intRange(t)
	return n.Cmp(lo) >= 0 && n.Cmp(hi) <= 0
}

// truncate wraps n into t the way a cast does: the low Bits bits,
// reinterpreted as two's complement when t is signed.
func truncate(n *big.Int, t typesystem.TInt) *big.Int {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(t.Bits))
	r := new(big.Int).Mod(n, mod)
	if t.Signed {
		half := new(big.Int).Rsh(mod, 1)
		if r.Cmp(half) >= 0 {
			r.Sub(r, mod)
		}
	}
	return r
}
