package contract

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"

	"github.com/regit-contracts/regit/internal/policy"
	"github.com/regit-contracts/regit/models"
	"go.uber.org/zap"
)

var exportHeader = []string{
	"reg_num", "subject", "signed_on", "valid_from", "value", "term", "guarantee",
	"ways_of_collection", "information_list", "responsible", "controlled_by", "status", "owner_id",
}

const dateLayout = "2006-01-02"

const exportPageSize = maxPageSize

// Export renders every contract visible under q as CSV. q.Limit and q.Offset
// are ignored.
func (s *Service) Export(ctx context.Context, principal *policy.Principal, q ListQuery) ([]byte, error) {
	contracts := []*models.Contract{}
	if filter, ok := s.filterFor(principal, q); ok {
		filter.Limit = exportPageSize
		for filter.Offset = 0; ; filter.Offset += exportPageSize {
			page, fetched, err := s.fetch(ctx, principal, filter)
			if err != nil {
				return nil, err
			}
			contracts = append(contracts, page...)
			if fetched < exportPageSize {
				break
			}
		}
	}

	data, err := writeCSV(contracts)
	if err != nil {
		return nil, err
	}

	if s.audit != nil && principal != nil {
		filter := map[string]string{"subject": q.Subject, "department": q.Department, "status": string(q.Status)}
		if err := s.audit.LogExport(ctx, principal, len(contracts), filter); err != nil {
			s.logger.Warn("failed to audit export", zap.Error(err))
		}
	}
	return data, nil
}

func writeCSV(contracts []*models.Contract) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}
	for _, c := range contracts {
		if err := w.Write(exportRow(c)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportRow(c *models.Contract) []string {
	guarantee := ""
	if c.Guarantee != nil {
		guarantee = strconv.FormatFloat(*c.Guarantee, 'f', 2, 64)
	}
	return []string{
		textCell(c.RegNum),
		textCell(c.Subject),
		c.SignedOn.Format(dateLayout),
		c.ValidFrom.Format(dateLayout),
		strconv.FormatFloat(c.Value, 'f', 2, 64),
		textCell(c.Term),
		guarantee,
		textCell(c.WaysOfCollection),
		textCell(c.InformationList),
		textCell(departmentName(c.Responsible)),
		textCell(departmentName(c.ControlledBy)),
		string(c.Status),
		textCell(c.OwnerID),
	}
}

// textCell keeps spreadsheets from evaluating user text as a formula.
func textCell(v string) string {
	if v == "" {
		return v
	}
	switch v[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + v
	}
	return v
}

func departmentName(d *models.Department) string {
	if d == nil {
		return ""
	}
	return d.Name
}
