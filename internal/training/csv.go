package training

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"unify/internal/domain"
	dErrors "unify/pkg/domain-errors"
)

// pairColumns is the expected CSV header for labeled pair files: every raw
// field twice (left_, right_ prefixes) plus the binary label.
var pairColumns = []string{
	"left_full_name", "left_dob", "left_phone", "left_email", "left_gov_id",
	"left_addr_line", "left_city", "left_state", "left_postal_code", "left_country",
	"right_full_name", "right_dob", "right_phone", "right_email", "right_gov_id",
	"right_addr_line", "right_city", "right_state", "right_postal_code", "right_country",
	"same",
}

// LoadPairsCSV reads a labeled pair dataset. The header row must match
// pairColumns exactly; the label accepts 0/1 and true/false.
func LoadPairsCSV(r io.Reader) ([]domain.LabeledPair, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(pairColumns)

	header, err := reader.Read()
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeBadRequest, "read pairs header", err)
	}
	for i, col := range pairColumns {
		if header[i] != col {
			return nil, dErrors.Newf(dErrors.CodeBadRequest,
				"pairs column %d is %q, expected %q", i, header[i], col)
		}
	}

	var pairs []domain.LabeledPair
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(dErrors.CodeBadRequest, fmt.Sprintf("read pairs line %d", line), err)
		}
		same, err := strconv.ParseBool(row[20])
		if err != nil {
			return nil, dErrors.Newf(dErrors.CodeBadRequest, "pairs line %d: bad label %q", line, row[20])
		}
		pairs = append(pairs, domain.LabeledPair{
			Left:  rawFromRow(row[0:10]),
			Right: rawFromRow(row[10:20]),
			Same:  same,
		})
	}
	return pairs, nil
}

func rawFromRow(cols []string) domain.RawRecord {
	return domain.RawRecord{
		FullName:   cols[0],
		DOB:        cols[1],
		Phone:      cols[2],
		Email:      cols[3],
		GovID:      cols[4],
		AddrLine:   cols[5],
		City:       cols[6],
		State:      cols[7],
		PostalCode: cols[8],
		Country:    cols[9],
	}
}
