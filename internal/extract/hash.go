package extract

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashURL returns the hex sha256 digest of a URL string. The persistence
// layer keys duplicate detection on it.
func HashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// HashFile returns the hex sha256 digest of a file buffer, used to
// content-address uploaded blobs.
func HashFile(buf []byte) string {
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}
