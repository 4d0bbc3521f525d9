package search

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"
)

// fingerprint generates a stable hash of the document slice. It changes
// when any document's content changes, which is what invalidates the
// cached Bleve index.
func fingerprint(docs []Doc) string {
	h := sha256.New()

	for _, doc := range docs {
		h.Write([]byte(doc.ID))
		h.Write([]byte{0})
		h.Write([]byte(doc.Name))
		h.Write([]byte{0})
		h.Write([]byte(doc.Feature))
		h.Write([]byte{0})
		h.Write([]byte(doc.Description))
		h.Write([]byte{0})
		h.Write([]byte(doc.Content))
		h.Write([]byte{0})

		// Tags are sorted so fingerprints are order-independent.
		sortedTags := slices.Clone(doc.Tags)
		slices.Sort(sortedTags)
		h.Write([]byte(strings.Join(sortedTags, "\x01")))
		h.Write([]byte{0})
	}

	return hex.EncodeToString(h.Sum(nil))
}
