package deck

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Checksum computes a deterministic SHA-256 of s. Two states with the same
// composition, lifecycle, zones (in order), hand limit and play have the same
// checksum regardless of map iteration order.
func Checksum(s State) string {
	sum := sha256.Sum256([]byte(canonical(s)))
	return hex.EncodeToString(sum[:])
}

func canonical(s State) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "LIFECYCLE:%s|%d\n", s.Lifecycle, s.HandLimit)
	fmt.Fprintf(&buf, "COMPOSITION:%d|%d\n", s.Composition.Nulls, s.Composition.Capacity)
	writeCounts(&buf, "BASE", s.Composition.Base)
	writeCounts(&buf, "MOD", s.Composition.Mods)

	// Zone order matters, so nothing below is sorted.
	buf.WriteString("DECK:")
	buf.WriteString(strings.Join(s.Deck, ","))
	buf.WriteString("\n")

	buf.WriteString("HAND:")
	for i, entry := range s.Hand {
		if i > 0 {
			buf.WriteString(",")
		}
		fmt.Fprintf(&buf, "%s/%s", entry.ID, entry.State)
	}
	buf.WriteString("\n")

	buf.WriteString("DISCARD:")
	for i, entry := range s.Discard {
		if i > 0 {
			buf.WriteString(",")
		}
		fmt.Fprintf(&buf, "%s/%s", entry.ID, entry.Origin)
	}
	buf.WriteString("\n")

	if s.Play != nil {
		fmt.Fprintf(&buf, "PLAY:%s|%s\n", s.Play.BaseID, strings.Join(s.Play.Mods, ","))
	}
	return buf.String()
}

func writeCounts(buf *bytes.Buffer, label string, counts map[string]int) {
	ids := make([]string, 0, len(counts))
	for id, n := range counts {
		if n != 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(buf, "%s:%s=%d\n", label, id, counts[id])
	}
}
