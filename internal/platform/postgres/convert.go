package postgres

import (
	"database/sql"
	"time"

	"github.com/phrazzld/chorecast/internal/domain"
)

// Civil dates travel as YYYY-MM-DD text cast to DATE so the session time
// zone can never move them to a neighbouring day.
func formatDate(t time.Time) string {
	return t.Format(domain.DateLayout)
}

func formatDatePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatDate(*t)
}

func intFromNull(n sql.NullInt32) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int32)
	return &v
}

func timeFromNull(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

func dateFromNull(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	d := domain.CivilDate(n.Time)
	return &d
}
