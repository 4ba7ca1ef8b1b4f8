package tables

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Digest names a materialized result. The operation tag is used as the
// join separator between identifiers, so the digest depends on identifier
// order as well as on the tag.
func Digest(tag string, ids []string) string {
	sum := md5.Sum([]byte(strings.Join(ids, tag)))
	return hex.EncodeToString(sum[:])
}
