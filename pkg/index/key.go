package index

// Keys holds one key per index level.
type Keys []any

// Equal compares level keys with ==. Keys come from comparable join
// properties, so the comparison never panics for well-formed joiners.
func (k Keys) Equal(other Keys) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if k[i] != other[i] {
			return false
		}
	}
	return true
}

type pair struct {
	head, tail any
}

type noKey struct{}

// NoKey is the key of a level (or a group) defined by zero properties.
var NoKey any = noKey{}

// Composite merges several comparable values into one hashable key.
// Composite(x) is x itself, so a single property costs nothing extra.
func Composite(vals ...any) any {
	switch len(vals) {
	case 0:
		return NoKey
	case 1:
		return vals[0]
	}
	var k any = vals[len(vals)-1]
	for i := len(vals) - 2; i >= 0; i-- {
		k = pair{head: vals[i], tail: k}
	}
	return k
}
