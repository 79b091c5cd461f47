package environment

import (
	"encoding/hex"

	"github.com/zeebo/blake3"
)

// manifestDomainKey separates environment hashes from any other BLAKE3 use.
// Changing it invalidates every cached artifact.
var manifestDomainKey = [32]byte{
	'm', 'd', 'b', 'o', 'o', 'k', '-', 'i', 'c', 'e', 'd', '.',
	'm', 'a', 'n', 'i', 'f', 'e', 's', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// HashManifest returns the hex keyed BLAKE3 digest of the manifest text.
func HashManifest(manifest string) string {
	hasher, err := blake3.NewKeyed(manifestDomainKey[:])
	if err != nil {
		// Only a wrong key length fails, which the array type rules out.
		panic("environment: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = hasher.Write([]byte(manifest))
	return hex.EncodeToString(hasher.Sum(nil))
}
