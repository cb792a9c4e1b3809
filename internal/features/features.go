// Package features computes the similarity signals scored by the duplicate
// model. Extraction is pure and total: missing fields produce the no-signal
// value 0, never an error. Every signal is symmetric in (query, candidate) so
// training pairs can be extracted in either order.
package features

import (
	"math"
	"time"

	"unify/internal/domain"
)

// Signal names, in schema order. The scoring model validates against these by
// name; reordering or renaming here without retraining is a schema break the
// scorer will reject.
const (
	SignalVectorSim    = "vector_sim"
	SignalNameSim      = "name_sim"
	SignalPhoneMatch   = "phone_match"
	SignalEmailMatch   = "email_match"
	SignalGovIDMatch   = "govid_match"
	SignalAddrOverlap  = "addr_overlap"
	SignalCitySim      = "city_sim"
	SignalStateSim     = "state_sim"
	SignalPostalMatch  = "postal_match"
	SignalDOBProximity = "dob_proximity"
)

// Schema returns the ordered signal names this extractor produces. The slice
// is a fresh copy; callers may keep it.
func Schema() []string {
	return []string{
		SignalVectorSim,
		SignalNameSim,
		SignalPhoneMatch,
		SignalEmailMatch,
		SignalGovIDMatch,
		SignalAddrOverlap,
		SignalCitySim,
		SignalStateSim,
		SignalPostalMatch,
		SignalDOBProximity,
	}
}

// Vector is an ordered feature vector with its signal names. Names and Values
// are index-aligned.
type Vector struct {
	Names  []string
	Values []float64
}

// Extract computes the feature vector for a (query, candidate) pair given the
// vector distance between their embeddings.
func Extract(query, cand domain.IdentityRecord, distance float64) Vector {
	return Vector{
		Names: Schema(),
		Values: []float64{
			1 / (1 + distance),
			optSim(query.FullName, cand.FullName),
			exactMatch(query.PhoneE164, cand.PhoneE164),
			exactMatch(query.Email, cand.Email),
			exactMatch(query.GovID, cand.GovID),
			optJaccard(query.AddrLine, cand.AddrLine),
			optSim(query.City, cand.City),
			optSim(query.State, cand.State),
			postalMatch(query.PostalCode, cand.PostalCode),
			dobProximity(query.DOB, cand.DOB),
		},
	}
}

// exactMatch is 1 only when both sides are present and equal; absence on
// either side is no-signal, not a match.
func exactMatch(a, b *string) float64 {
	va, oka := domain.Str(a)
	vb, okb := domain.Str(b)
	if oka && okb && va == vb {
		return 1
	}
	return 0
}

func optSim(a, b *string) float64 {
	va, _ := domain.Str(a)
	vb, _ := domain.Str(b)
	return jaroWinkler(va, vb)
}

func optJaccard(a, b *string) float64 {
	va, _ := domain.Str(a)
	vb, _ := domain.Str(b)
	return tokenJaccard(va, vb)
}

// postalMatch is 1 on exact match and 0.5 when two six-digit codes share the
// first five digits (adjacent postal zones).
func postalMatch(a, b *string) float64 {
	va, oka := domain.Str(a)
	vb, okb := domain.Str(b)
	if !oka || !okb {
		return 0
	}
	if va == vb {
		return 1
	}
	if len(va) == 6 && len(vb) == 6 && va[:5] == vb[:5] {
		return 0.5
	}
	return 0
}

// dobProximity decays exponentially with the day gap between birth dates:
// 1 for identical dates, ~0.37 at a year apart, 0 when either side is absent.
func dobProximity(a, b *time.Time) float64 {
	if a == nil || b == nil {
		return 0
	}
	days := math.Abs(a.Sub(*b).Hours() / 24)
	return math.Exp(-days / 365)
}
