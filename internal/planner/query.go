package planner

import (
	"fmt"
	"time"

	"github.com/nick-dorsch/planner/internal/filter"
	"github.com/nick-dorsch/planner/internal/period"
	"github.com/nick-dorsch/planner/pkg/models"
)

// ParseQuery builds a filter.Query from the text forms every surface
// accepts: a unit ("all", "week", "month", "year"), a YYYY-MM-DD anchor
// date interpreted in loc, a status and a search string.
func ParseQuery(unit, date, status, search string, loc *time.Location) (filter.Query, error) {
	u, err := period.ParseUnit(unit)
	if err != nil {
		return filter.Query{}, err
	}
	st, err := filter.ParseStatus(status)
	if err != nil {
		return filter.Query{}, err
	}

	q := filter.Query{Unit: u, Status: st, Search: search}
	if date != "" {
		if loc == nil {
			loc = time.Local
		}
		d, err := time.ParseInLocation(models.DueDateLayout, date, loc)
		if err != nil {
			return filter.Query{}, fmt.Errorf("invalid date %q: %w", date, err)
		}
		q.Date = d
	}
	return q, nil
}
