package main

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SanitizeTitle maps every rune that is not an ASCII letter or digit to a
// single '_' and lowercases the rest. The mapping is not injective; callers
// that need uniqueness go through the artifact index.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// CacheKey derives the stable cache key of a video from its id.
func CacheKey(videoID string) string {
	sum := sha256.Sum256([]byte(videoID))
	return hex.EncodeToString(sum[:])[:CacheKeyLength]
}

// TitleFileName is the artifact filename derived from a title, falling back
// to the cache key when nothing of the title survives.
func TitleFileName(title, key string) string {
	name := SanitizeTitle(title)
	if name == "" {
		name = key
	}
	return name + ArtifactExt
}

// disambiguate appends a short key suffix, used when another video already
// owns the title-derived name.
func disambiguate(name, key string) string {
	base := strings.TrimSuffix(name, ArtifactExt)
	return base + "_" + key[:8] + ArtifactExt
}
