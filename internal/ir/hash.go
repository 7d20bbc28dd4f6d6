package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainScenario    = "linkage/scenario/v1"
	DomainLedgerValue = "linkage/ledger-value/v1"
	DomainExchange    = "linkage/exchange/v1"
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

// ScenarioID computes a stable identity for a scenario from its name,
// operation and request. Renaming or changing the request yields a new ID.
func ScenarioID(s Scenario) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"name":      s.Name,
		"operation": s.Operation.String(),
		"request":   s.Request,
	})
	if err != nil {
		return "", fmt.Errorf("ScenarioID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainScenario, canonical), nil
}

// LedgerValueHash hashes a ledger value so stores can index values without
// comparing canonical blobs.
func LedgerValueHash(v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("LedgerValueHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainLedgerValue, canonical), nil
}

// ExchangeID identifies one executed request/response pair of a scenario run.
func ExchangeID(runID string, scenario string, attempt int, req HTTPRequest, resp HTTPResponse) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"run_id":   runID,
		"scenario": scenario,
		"attempt":  attempt,
		"request":  req,
		"response": resp,
	})
	if err != nil {
		return "", fmt.Errorf("ExchangeID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainExchange, canonical), nil
}

// MustScenarioID is like ScenarioID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustScenarioID(s Scenario) string {
	id, err := ScenarioID(s)
	if err != nil {
		panic(err)
	}
	return id
}
