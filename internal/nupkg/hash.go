package nupkg

import (
	"crypto/sha256"
	"fmt"
)

// Hash sha256 of the raw archive bytes
func Hash(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}
