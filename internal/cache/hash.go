package cache

import "github.com/zeebo/xxh3"

// artifactKey combines text and language into one key. The language hash
// seeds the text hash so equal texts in different languages do not collide
// by construction.
func artifactKey(text, language string) uint64 {
	return xxh3.HashStringSeed(text, xxh3.HashString(language))
}
