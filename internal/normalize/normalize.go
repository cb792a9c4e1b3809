// Package normalize canonicalizes raw identity fields into comparable forms.
// All functions are pure; failures are per-field coded errors and the caller
// decides whether to reject the whole record or proceed with a partial one.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"unify/internal/domain"
	dErrors "unify/pkg/domain-errors"
)

// dobFloor rejects obviously bogus birth years.
var dobFloor = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	spaceRe = regexp.MustCompile(`\s+`)
	digitRe = regexp.MustCompile(`\D`)
	alnumRe = regexp.MustCompile(`[^A-Za-z0-9]`)
	// Basic address grammar: local@domain.tld with no whitespace. Full RFC 5322
	// validation is deliberately out of scope.
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Default postal rule: 5 digits, or 6 digits with a non-zero leading digit
	// (Indian PIN convention carried over from the ingestion sources).
	defaultPostalRe = regexp.MustCompile(`^(\d{5}|[1-9]\d{5})$`)
)

// Normalizer holds the tunable pieces of field normalization. The zero value
// is not usable; construct via New.
type Normalizer struct {
	defaultRegion string
	postalRe      *regexp.Regexp
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDefaultRegion sets the country calling code (digits only, e.g. "1",
// "91") assumed for phone numbers without an international prefix.
func WithDefaultRegion(cc string) Option {
	return func(n *Normalizer) { n.defaultRegion = cc }
}

// WithPostalPattern overrides the postal code validation pattern.
func WithPostalPattern(re *regexp.Regexp) Option {
	return func(n *Normalizer) { n.postalRe = re }
}

// New constructs a Normalizer with the default postal rule and no assumed
// phone region.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{postalRe: defaultPostalRe}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name trims, collapses internal whitespace, and uppercases for comparison.
func (n *Normalizer) Name(s string) string {
	return collapseUpper(s)
}

// Area normalizes address lines, cities, and states the same way as names.
func (n *Normalizer) Area(s string) string {
	return collapseUpper(s)
}

// Country trims and uppercases a country code.
func (n *Normalizer) Country(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Phone returns a best-effort E.164 number.
//
// Errors: CodeInvalidPhone when the digit count falls outside E.164 bounds
// (7-15 digits including the country code).
func (n *Normalizer) Phone(s string) (string, error) {
	trimmed := strings.TrimSpace(s)
	international := strings.HasPrefix(trimmed, "+")
	digits := digitRe.ReplaceAllString(trimmed, "")
	if digits == "" {
		return "", dErrors.New(dErrors.CodeInvalidPhone, "phone has no digits")
	}
	if !international && n.defaultRegion != "" && !strings.HasPrefix(digits, n.defaultRegion) {
		digits = n.defaultRegion + digits
	}
	if len(digits) < 7 || len(digits) > 15 {
		return "", dErrors.Newf(dErrors.CodeInvalidPhone, "phone %q is not a valid E.164 number", s)
	}
	return "+" + digits, nil
}

// Email lowercases and trims, then applies provider-specific rules: for
// gmail/googlemail the local part drops dots and anything after a plus sign.
//
// Errors: CodeInvalidEmail when the value does not match the basic grammar.
func (n *Normalizer) Email(s string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(s))
	if !emailRe.MatchString(addr) {
		return "", dErrors.Newf(dErrors.CodeInvalidEmail, "email %q does not look like an address", s)
	}
	local, dom, _ := strings.Cut(addr, "@")
	if dom == "gmail.com" || dom == "googlemail.com" {
		local, _, _ = strings.Cut(local, "+")
		local = strings.ReplaceAll(local, ".", "")
	}
	return local + "@" + dom, nil
}

// GovID strips non-alphanumeric characters and uppercases.
//
// Errors: CodeBadRequest when nothing alphanumeric remains.
func (n *Normalizer) GovID(s string) (string, error) {
	id := strings.ToUpper(alnumRe.ReplaceAllString(s, ""))
	if id == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "government id has no alphanumeric characters")
	}
	return id, nil
}

// DOB parses an ISO calendar date.
//
// Errors: CodeInvalidDate on malformed input, future dates, or years before
// 1900.
func (n *Normalizer) DOB(s string, now time.Time) (time.Time, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, dErrors.Newf(dErrors.CodeInvalidDate, "dob %q is not an ISO date", s)
	}
	if t.After(now) {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidDate, "dob is in the future")
	}
	if t.Before(dobFloor) {
		return time.Time{}, dErrors.New(dErrors.CodeInvalidDate, "dob year is before 1900")
	}
	return t, nil
}

// PostalCode validates against the configured pattern after stripping spaces.
//
// Errors: CodeInvalidPostalCode when the pattern does not match.
func (n *Normalizer) PostalCode(s string) (string, error) {
	pc := strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if !n.postalRe.MatchString(pc) {
		return "", dErrors.Newf(dErrors.CodeInvalidPostalCode, "postal code %q does not match the expected format", s)
	}
	return pc, nil
}

// FieldErrors collects per-field normalization failures keyed by field name.
type FieldErrors map[string]error

// Err returns the first failure (stable field order) or nil.
func (fe FieldErrors) Err() error {
	for _, f := range []string{"phone", "email", "gov_id", "dob", "postal_code"} {
		if err, ok := fe[f]; ok {
			return err
		}
	}
	for _, err := range fe {
		return err
	}
	return nil
}

// Record normalizes every present field of a raw record. Absent fields stay
// nil; failed fields stay nil and are reported in FieldErrors. The caller
// decides whether partial records are acceptable.
func (n *Normalizer) Record(raw domain.RawRecord, now time.Time) (domain.IdentityRecord, FieldErrors) {
	rec := domain.IdentityRecord{
		FullName: domain.StrPtr(n.Name(raw.FullName)),
		AddrLine: domain.StrPtr(n.Area(raw.AddrLine)),
		City:     domain.StrPtr(n.Area(raw.City)),
		State:    domain.StrPtr(n.Area(raw.State)),
		Country:  domain.StrPtr(n.Country(raw.Country)),
	}
	errs := FieldErrors{}

	if raw.Phone != "" {
		if v, err := n.Phone(raw.Phone); err != nil {
			errs["phone"] = err
		} else {
			rec.PhoneE164 = &v
		}
	}
	if raw.Email != "" {
		if v, err := n.Email(raw.Email); err != nil {
			errs["email"] = err
		} else {
			rec.Email = &v
		}
	}
	if raw.GovID != "" {
		if v, err := n.GovID(raw.GovID); err != nil {
			errs["gov_id"] = err
		} else {
			rec.GovID = &v
		}
	}
	if raw.DOB != "" {
		if v, err := n.DOB(raw.DOB, now); err != nil {
			errs["dob"] = err
		} else {
			rec.DOB = &v
		}
	}
	if raw.PostalCode != "" {
		if v, err := n.PostalCode(raw.PostalCode); err != nil {
			errs["postal_code"] = err
		} else {
			rec.PostalCode = &v
		}
	}
	if len(errs) == 0 {
		errs = nil
	}
	return rec, errs
}

func collapseUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(spaceRe.ReplaceAllString(s, " ")))
}
