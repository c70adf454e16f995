package catalog

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// Fingerprint hashes the canonical JSON encoding of records. Record order
// is significant because it breaks ranking ties.
func Fingerprint(records []Record) (string, error) {
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encoding catalog for fingerprint: %w", err)
	}
	return fmt.Sprintf("%x", sha256.Sum256(data)), nil
}

// Fingerprint identifies the catalog by content. Two processes holding
// equal catalogs get equal fingerprints.
func (c Catalog) Fingerprint() (string, error) {
	return Fingerprint(c.records)
}
