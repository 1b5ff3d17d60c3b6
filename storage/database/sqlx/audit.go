package sqlxrepos

import (
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/audit"
)

type auditRow struct {
	ID        int64           `db:"id"`
	Timestamp sql.NullTime    `db:"timestamp"`
	EventType string          `db:"event_type"`
	Payload   json.RawMessage `db:"payload"`
}

// auditSink stores audit entries in Postgres for deployments that want the
// trail queryable; the insert-only access path keeps it append-only.
type auditSink struct {
	db *sqlx.DB
}

var _ audit.Sink = (*auditSink)(nil) // interface compliance check

func NewAuditSink(db *sql.DB) *auditSink {
	return &auditSink{db: sqlx.NewDb(db, "postgres")}
}

func (s auditSink) Append(e audit.Entry) error {
	_, err := s.db.Exec(
		`INSERT INTO audit_entry (timestamp, event_type, payload) VALUES ($1, $2, $3)`,
		e.Timestamp.UTC(), e.Type, []byte(e.Payload),
	)
	return errors.Wrap(err, "appending audit entry")
}

func (s auditSink) Tail(n int) ([]audit.Entry, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, event_type, payload FROM audit_entry ORDER BY id DESC LIMIT $1`, n,
	)
	if err != nil {
		return nil, errors.Wrap(err, "tailing audit entries")
	}
	defer func() { _ = rows.Close() }()

	var entries []audit.Entry
	for rows.Next() {
		var row auditRow
		if err = rows.Scan(&row.Timestamp, &row.EventType, (*[]byte)(&row.Payload)); err != nil {
			return nil, errors.Wrap(err, "tailing audit entries")
		}
		entries = append(entries, audit.Entry{
			Timestamp: row.Timestamp.Time,
			Type:      row.EventType,
			Payload:   row.Payload,
		})
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "tailing audit entries")
	}

	// newest-last, matching the file sink
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
