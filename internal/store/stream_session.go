package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// eventRepo implements EventRepo over database/sql and the global sequence
// counter.
type eventRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

const streamSessionColumns = `id, sequence, timestamp, session_id, purpose, mode, profession_id,
	task_id, frames, decode_errors, terminal_kind, latency_ms, success, error_message`

func (r *eventRepo) AppendStreamSession(ctx context.Context, data StreamSessionData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `INSERT INTO stream_sessions (
		sequence, timestamp, session_id, purpose, mode, profession_id, task_id,
		frames, decode_errors, terminal_kind, latency_ms, success, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seqNum,
		time.Now().UTC().UnixNano(),
		data.SessionID,
		data.Purpose,
		data.Mode,
		data.ProfessionID,
		data.TaskID,
		data.Frames,
		data.DecodeErrors,
		data.TerminalKind,
		data.LatencyMs,
		data.Success,
		data.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("save stream session: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryStreamSessions(ctx context.Context, opts QueryOpts) ([]StreamSessionRecord, error) {
	var where []string
	var args []any

	if opts.After > 0 {
		where = append(where, "sequence > ?")
		args = append(args, opts.After)
	}
	if opts.Before > 0 {
		where = append(where, "sequence < ?")
		args = append(args, opts.Before)
	}
	if !opts.From.IsZero() {
		where = append(where, "timestamp >= ?")
		args = append(args, opts.From.UTC().UnixNano())
	}
	if !opts.To.IsZero() {
		where = append(where, "timestamp <= ?")
		args = append(args, opts.To.UTC().UnixNano())
	}
	if opts.Purpose != "" {
		where = append(where, "purpose = ?")
		args = append(args, opts.Purpose)
	}

	q := "SELECT " + streamSessionColumns + " FROM stream_sessions"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY sequence DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query stream sessions: %w", err)
	}
	defer rows.Close()

	var records []StreamSessionRecord
	for rows.Next() {
		rec, err := scanStreamSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stream session: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query stream sessions: %w", err)
	}
	return records, nil
}

func (r *eventRepo) GetStreamSession(ctx context.Context, id int) (*StreamSessionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+streamSessionColumns+" FROM stream_sessions WHERE id = ?", id)
	rec, err := scanStreamSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get stream session: %w", err)
	}
	return &rec, nil
}

func (r *eventRepo) UsageByPurpose(ctx context.Context) ([]PurposeUsage, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT purpose, COUNT(*), SUM(success), SUM(frames),
		SUM(decode_errors), CAST(AVG(latency_ms) AS INTEGER)
		FROM stream_sessions GROUP BY purpose ORDER BY purpose`)
	if err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	defer rows.Close()

	var usage []PurposeUsage
	for rows.Next() {
		var u PurposeUsage
		if err := rows.Scan(&u.Purpose, &u.Sessions, &u.Succeeded, &u.Frames, &u.DecodeErrors, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		usage = append(usage, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query usage: %w", err)
	}
	return usage, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStreamSession(row rowScanner) (StreamSessionRecord, error) {
	var rec StreamSessionRecord
	var ts int64
	err := row.Scan(
		&rec.ID,
		&rec.Sequence,
		&ts,
		&rec.SessionID,
		&rec.Purpose,
		&rec.Mode,
		&rec.ProfessionID,
		&rec.TaskID,
		&rec.Frames,
		&rec.DecodeErrors,
		&rec.TerminalKind,
		&rec.LatencyMs,
		&rec.Success,
		&rec.ErrorMessage,
	)
	if err != nil {
		return StreamSessionRecord{}, err
	}
	rec.Timestamp = time.Unix(0, ts).UTC()
	return rec, nil
}
