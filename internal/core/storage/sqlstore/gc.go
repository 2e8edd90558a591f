package sqlstore

import (
	"context"

	"github.com/Fulvio75/fpdb/internal/core/cache"
	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
)

// TourneyTypeInUse reports whether any tourney still references the type.
func (c *conn) TourneyTypeInUse(ctx context.Context, id int64) (bool, error) {
	var n int64
	if err := c.ext.QueryRowxContext(ctx, c.rebind("SELECT COUNT(*) FROM Tourneys WHERE tourneyTypeId = ?"), id).Scan(&n); err != nil {
		return false, fperrors.Storage("tourney type in use", err)
	}
	return n > 0, nil
}

func (c *conn) DeleteTourneyType(ctx context.Context, id int64) error {
	_, err := c.exec(ctx, "delete tourney type", c.rebind("DELETE FROM TourneyTypes WHERE id = ?"), id)
	return err
}

// DeleteOrphanBuckets removes the week and month rows of pairs that no
// session references any more. It returns how many rows went.
func (c *conn) DeleteOrphanBuckets(ctx context.Context, pairs []cache.BucketPair) (int64, error) {
	if len(pairs) == 0 {
		return 0, nil
	}
	weeks := make([]int64, 0, len(pairs))
	months := make([]int64, 0, len(pairs))
	for _, p := range pairs {
		weeks = append(weeks, p.WeekID)
		months = append(months, p.MonthID)
	}
	w, err := c.execIn(ctx, "delete orphan weeks",
		"DELETE FROM WeeksCache WHERE id IN (?) AND id NOT IN (SELECT weekId FROM SessionsCache)", weeks)
	if err != nil {
		return 0, err
	}
	m, err := c.execIn(ctx, "delete orphan months",
		"DELETE FROM MonthsCache WHERE id IN (?) AND id NOT IN (SELECT monthId FROM SessionsCache)", months)
	if err != nil {
		return 0, err
	}
	return w + m, nil
}

// DeleteAllOrphanBuckets removes every week and month row no session references.
func (c *conn) DeleteAllOrphanBuckets(ctx context.Context) (int64, error) {
	w, err := c.exec(ctx, "delete orphan weeks",
		"DELETE FROM WeeksCache WHERE id NOT IN (SELECT weekId FROM SessionsCache)")
	if err != nil {
		return 0, err
	}
	m, err := c.exec(ctx, "delete orphan months",
		"DELETE FROM MonthsCache WHERE id NOT IN (SELECT monthId FROM SessionsCache)")
	if err != nil {
		return 0, err
	}
	wn, _ := w.RowsAffected()
	mn, _ := m.RowsAffected()
	return wn + mn, nil
}
