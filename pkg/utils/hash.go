package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// ComputeMDHashID returns prefix followed by the hex md5 of content. Entity and
// relation vector ids are derived this way ("ent-", "rel-") so they can be
// recomputed from names when deleting.
func ComputeMDHashID(content, prefix string) string {
	sum := md5.Sum([]byte(content))
	return prefix + hex.EncodeToString(sum[:])
}
