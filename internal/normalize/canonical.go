package normalize

import (
	"strings"

	"unify/internal/domain"
)

// missing is the sentinel for absent fields in canonical strings. Fields are
// never omitted so token alignment stays stable across records.
const missing = "-"

// Canonical renders the deterministic identity string used as embedding
// input. Field order and separators are fixed; identical records always
// produce byte-identical output.
func Canonical(rec domain.IdentityRecord) string {
	dob := missing
	if rec.DOB != nil {
		dob = rec.DOB.Format("2006-01-02")
	}
	parts := []string{
		"name:" + orMissing(rec.FullName),
		"dob:" + dob,
		"phone:" + orMissing(rec.PhoneE164),
		"email:" + orMissing(rec.Email),
		"govid:" + orMissing(rec.GovID),
		"addr:" + orMissing(rec.AddrLine),
		"city:" + orMissing(rec.City),
		"state:" + orMissing(rec.State),
		"pc:" + orMissing(rec.PostalCode),
		"ctry:" + orMissing(rec.Country),
	}
	return strings.Join(parts, " | ")
}

func orMissing(p *string) string {
	if v, ok := domain.Str(p); ok {
		return v
	}
	return missing
}
