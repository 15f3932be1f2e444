// Package fileid derives stable identifiers and stored names for library files.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"
)

const prefix = "pdf:"

// TimestampLayout formats the upload time prefix of stored names.
const TimestampLayout = "20060102_150405"

// Checksum returns the hex SHA-256 of content.
func Checksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// DocID returns the registry ID for a stored file name.
// The same stored name always yields the same ID.
func DocID(storedName string) string {
	hash := sha256.Sum256([]byte(storedName))
	return prefix + hex.EncodeToString(hash[:16])
}

// StoredName returns "<YYYYmmdd_HHMMSS>_<sha256[:8]>_<original>" with the
// original name reduced to its base name.
func StoredName(uploadedAt time.Time, checksum, original string) string {
	short := checksum
	if len(short) > 8 {
		short = short[:8]
	}
	return uploadedAt.Format(TimestampLayout) + "_" + short + "_" + SafeBase(original)
}

// SafeBase strips directories and path separators from a client-supplied name.
func SafeBase(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base("/" + name)
	if base == "/" || base == "." || base == ".." {
		return "unnamed"
	}
	return base
}
