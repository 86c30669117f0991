package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainNetwork = "kwsearch/network/v1"
	DomainBlock   = "kwsearch/block/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// NetworkHash computes the content-addressed identity of a candidate
// network from its canonical encoding.
func NetworkHash(canonical IRValue) (string, error) {
	data, err := MarshalCanonical(canonical)
	if err != nil {
		return "", fmt.Errorf("NetworkHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNetwork, data), nil
}

// BlockHash identifies one stratum choice of a network.
// The same index vector always hashes to the same value for a given network.
func BlockHash(networkKey string, index []int) (string, error) {
	obj := IRObject{
		"network": IRString(networkKey),
		"index":   Ints(index),
	}
	data, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("BlockHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainBlock, data), nil
}

// MustNetworkHash is like NetworkHash but panics on error.
// Use only when the canonical value is built from IR types directly.
func MustNetworkHash(canonical IRValue) string {
	h, err := NetworkHash(canonical)
	if err != nil {
		panic(err)
	}
	return h
}
