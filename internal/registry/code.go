package registry

import "math/rand/v2"

const (
	DefaultCodeLength = 4

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// CodeGenerator returns a candidate game code of the given length. The
// registry keeps asking until it gets a code that is not in use.
type CodeGenerator func(length int) string

func RandomCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}
