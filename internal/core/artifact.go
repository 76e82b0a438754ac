package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	artifactExt = ".csv"
	manifestExt = ".manifest.json"
)

// Content types recorded for stored artifacts.
const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ContentTypeFor returns the content type of bytes decoded as encoding.
func ContentTypeFor(encoding string) string {
	if encoding == EncodingXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

func artifactContentType(meta UploadMetadata) string {
	if meta.ContentType != "" {
		return meta.ContentType
	}
	return ContentTypeFor(meta.Encoding)
}

// ContentDigest returns the lowercase hex SHA-256 of data.
func ContentDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Slugify lower-cases name, replaces every run of characters outside [a-z0-9]
// with a single hyphen and strips leading and trailing hyphens.
func Slugify(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingHyphen := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// ArtifactPath builds {tenant}/{kind}/{YYYY}/{MM}/{epochMillis}-{slug}.csv.
// The filename's extension is dropped before slugging.
func ArtifactPath(tenantID, datasetKind string, at time.Time, filename string) string {
	at = at.UTC()
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	slug := Slugify(base)
	if slug == "" {
		slug = "upload"
	}
	return fmt.Sprintf("%s/%s/%04d/%02d/%d-%s%s",
		tenantID, datasetKind, at.Year(), int(at.Month()), at.UnixMilli(), slug, artifactExt)
}

// ManifestPath returns the manifest sibling of an artifact path.
func ManifestPath(artifactPath string) string {
	return strings.TrimSuffix(artifactPath, artifactExt) + manifestExt
}

// IsArtifactPath reports whether key names an uploaded artifact rather than a manifest.
func IsArtifactPath(key string) bool {
	return strings.HasSuffix(key, artifactExt)
}
