// Package integrity computes the content hash binding a product's immutable
// creation-time fields to its ledger record. The digest is the sole
// authenticity check for any off-ledger copy, so the serialization is part of
// the contract: a JSON document with exactly these fields in exactly this
// order, hashed with SHA-256 and rendered as lowercase hex.
//
//	{"name":…,"variety":…,"farmer":…,"harvestDate":"YYYY-MM-DD","location":…}
package integrity

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"
)

// HarvestDateLayout is the canonical harvest date rendering inside the hashed
// document. Dates are normalized to UTC before formatting.
const HarvestDateLayout = "2006-01-02"

// DigestHexLen is the length of the rendered digest.
const DigestHexLen = 64

// Input carries the five creation-time fields bound by the hash. Field order
// mirrors the serialized document and must not change.
type Input struct {
	Name          string    `json:"name"`
	Variety       string    `json:"variety"`
	FarmerAddress string    `json:"farmer"`
	HarvestDate   time.Time `json:"-"`
	FarmLocation  string    `json:"location"`
}

type hashDocument struct {
	Name        string `json:"name"`
	Variety     string `json:"variety"`
	Farmer      string `json:"farmer"`
	HarvestDate string `json:"harvestDate"`
	Location    string `json:"location"`
}

// ComputeHash returns the deterministic content hash for the given fields.
func ComputeHash(in Input) string {
	doc := hashDocument{
		Name:        in.Name,
		Variety:     in.Variety,
		Farmer:      in.FarmerAddress,
		HarvestDate: in.HarvestDate.UTC().Format(HarvestDateLayout),
		Location:    in.FarmLocation,
	}
	// Struct fields marshal in declaration order, which fixes the document
	// layout without hand-rolled concatenation.
	raw, err := json.Marshal(doc)
	if err != nil {
		// Marshaling a flat string struct cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Verify reports whether candidate equals the digest of in, byte for byte.
func Verify(in Input, candidate string) bool {
	if len(candidate) != DigestHexLen {
		return false
	}
	expected := ComputeHash(in)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}
