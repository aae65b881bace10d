package mapping

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
)

// Fingerprint derives a stable hash over the import's inputs: the source
// file contents, the column mapping, the duplicate strategy and the review
// corrections. Two imports with the same fingerprint produce the same
// preview, so cached artifacts can be reused instead of re-resolving.
func Fingerprint(filePath string, set *Set, strategy string, corrections *Corrections) (string, error) {
	h := sha256.New()

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	fmt.Fprintf(h, "\x00strategy:%s", strategy)

	mappings := set.All()
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Source < mappings[j].Source })
	for _, m := range mappings {
		fmt.Fprintf(h, "\x00map:%s\x01%s\x01%s", m.Source, m.Relationship, m.Target)
	}

	if corrections != nil {
		fields := corrections.Fields()
		sort.Strings(fields)
		for _, fieldKey := range fields {
			values := corrections.ForField(fieldKey)
			keys := make([]string, 0, len(values))
			for k := range values {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(h, "\x00fix:%s\x01%s\x01%s", fieldKey, k, values[k])
			}
		}
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ShortFingerprint trims a fingerprint for log lines and artifact names.
func ShortFingerprint(fp string) string {
	if len(fp) <= 12 {
		return fp
	}
	return fp[:12]
}
