package server

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	earningsdomain "github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/earnings/period"
)

const dateOnlyLayout = "2006-01-02"

// parseOptionalTime accepts RFC 3339 or a bare date. Bare dates are taken in
// loc, as the start or the last instant of that day.
func parseOptionalTime(value string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, loc); err == nil {
		if endOfDay {
			parsed = parsed.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}

func (s *Server) parseSummaryRequest(c *gin.Context) (earningsdomain.SummaryRequest, error) {
	p, err := period.ParsePeriod(c.Query("period"))
	if err != nil {
		return earningsdomain.SummaryRequest{}, newValidationError("period", "invalid_period", "period must be all, this_month, last_month, last_3_months or custom")
	}

	req := earningsdomain.SummaryRequest{
		CreatorID: strings.TrimSpace(c.Param("creator_id")),
		Period:    p,
	}
	if p != earningsdomain.PeriodCustom {
		return req, nil
	}

	from, err := parseOptionalTime(c.Query("from"), false, s.location)
	if err != nil {
		return earningsdomain.SummaryRequest{}, newValidationError("from", "invalid_from", "invalid from")
	}
	to, err := parseOptionalTime(c.Query("to"), true, s.location)
	if err != nil {
		return earningsdomain.SummaryRequest{}, newValidationError("to", "invalid_to", "invalid to")
	}
	req.Custom = earningsdomain.CustomRange{From: from, To: to}
	return req, nil
}

// parseCreatorIDs splits a comma separated list, dropping blanks.
func parseCreatorIDs(values []string) []string {
	var ids []string
	for _, value := range values {
		for _, id := range strings.Split(value, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
