package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unify/internal/domain"
)

func TestCanonical(t *testing.T) {
	n := New(WithDefaultRegion("1"))

	t.Run("renders fixed field order with sentinels", func(t *testing.T) {
		dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
		rec := domain.IdentityRecord{
			FullName:  domain.StrPtr("JOHN SMITH"),
			DOB:       &dob,
			PhoneE164: domain.StrPtr("+15551230000"),
		}
		assert.Equal(t,
			"name:JOHN SMITH | dob:1990-01-01 | phone:+15551230000 | email:- | govid:- | addr:- | city:- | state:- | pc:- | ctry:-",
			Canonical(rec))
	})

	t.Run("identical records yield byte-identical strings", func(t *testing.T) {
		raw := domain.RawRecord{FullName: "john smith", Phone: "555 123 0000", City: "Austin"}
		a, errs := n.Record(raw, testNow)
		require.Nil(t, errs)
		b, errs := n.Record(raw, testNow)
		require.Nil(t, errs)
		assert.Equal(t, Canonical(a), Canonical(b))
	})

	t.Run("permuting field values changes the string", func(t *testing.T) {
		a := domain.IdentityRecord{City: domain.StrPtr("AUSTIN"), State: domain.StrPtr("TX")}
		b := domain.IdentityRecord{City: domain.StrPtr("TX"), State: domain.StrPtr("AUSTIN")}
		assert.NotEqual(t, Canonical(a), Canonical(b))
	})

	t.Run("all absent still renders every slot", func(t *testing.T) {
		assert.Equal(t,
			"name:- | dob:- | phone:- | email:- | govid:- | addr:- | city:- | state:- | pc:- | ctry:-",
			Canonical(domain.IdentityRecord{}))
	})
}
