package sqlstore

import (
	"context"
	"time"

	fperrors "github.com/Fulvio75/fpdb/internal/core/errors"
	"github.com/Fulvio75/fpdb/internal/core/storage"
)

// TryAcquireLock flips the InsertLock row to locked for holder.
func (c *conn) TryAcquireLock(ctx context.Context, holder string, at time.Time) (bool, error) {
	res, err := c.exec(ctx, "acquire insert lock", c.rebind(
		"UPDATE InsertLock SET locked = ?, holder = ?, acquiredAt = ? WHERE id = 1 AND locked = ?"),
		true, holder, ts(at), false)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fperrors.Storage("acquire insert lock", err)
	}
	return n == 1, nil
}

// ReleaseLock unlocks the row if holder owns it.
func (c *conn) ReleaseLock(ctx context.Context, holder string) (bool, error) {
	res, err := c.exec(ctx, "release insert lock", c.rebind(
		"UPDATE InsertLock SET locked = ?, holder = NULL, acquiredAt = NULL WHERE id = 1 AND holder = ?"),
		false, holder)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fperrors.Storage("release insert lock", err)
	}
	return n == 1, nil
}

// RecordFile writes the bookkeeping row of one imported file.
func (c *conn) RecordFile(ctx context.Context, f storage.FileRecord) (int64, error) {
	var id int64
	err := c.ext.QueryRowxContext(ctx, c.rebind(
		"INSERT INTO Files (path, hands, duplicates, errors, startTime, endTime) VALUES (?, ?, ?, ?, ?, ?) RETURNING id"),
		f.Path, f.Stored, f.Duplicates, f.Errors, ts(f.Started), ts(f.Finished)).Scan(&id)
	if err != nil {
		return 0, fperrors.Storage("record file", err)
	}
	return id, nil
}
