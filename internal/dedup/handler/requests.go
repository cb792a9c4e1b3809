package handler

import (
	"unify/internal/domain"
	dErrors "unify/pkg/domain-errors"
)

// IdentityRequest is the wire shape for ingest and check. Empty fields mean
// "not provided"; normalization decides whether present fields are valid.
type IdentityRequest struct {
	FullName   string `json:"full_name"`
	DOB        string `json:"dob"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	GovID      string `json:"gov_id"`
	AddrLine   string `json:"addr_line"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Raw converts the request into the domain input record.
func (r IdentityRequest) Raw() domain.RawRecord {
	return domain.RawRecord{
		FullName:   r.FullName,
		DOB:        r.DOB,
		Phone:      r.Phone,
		Email:      r.Email,
		GovID:      r.GovID,
		AddrLine:   r.AddrLine,
		City:       r.City,
		State:      r.State,
		PostalCode: r.PostalCode,
		Country:    r.Country,
	}
}

// TrainRequest carries labeled pairs for a JSON-bodied training run.
type TrainRequest struct {
	Pairs []domain.LabeledPair `json:"pairs"`
}

// Validate rejects requests a training run could never use.
func (r TrainRequest) Validate() error {
	if len(r.Pairs) == 0 {
		return dErrors.New(dErrors.CodeBadRequest, "pairs must not be empty")
	}
	return nil
}
