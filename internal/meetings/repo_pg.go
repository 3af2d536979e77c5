package meetings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"meetnotes-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

const meetingColumns = `id, title, meeting_date, start_time, end_time, participants, platform,
       is_recording, template_id, audio_key, processing_error`

// CreateMeeting inserts a meeting.
func (r *PGRepo) CreateMeeting(ctx context.Context, m Meeting) error {
	const query = `
INSERT INTO meetings (` + meetingColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	participants, err := marshalList(m.Participants)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		m.ID,
		m.Title,
		DateOf(m.Date),
		m.StartTime,
		nullTime(m.EndTime),
		participants,
		m.Platform,
		m.IsRecording,
		nullString(m.TemplateID),
		nullString(m.AudioKey),
		nullString(m.ProcessingError),
	)
	return err
}

// UpdateMeeting overwrites every mutable column of a meeting.
func (r *PGRepo) UpdateMeeting(ctx context.Context, m Meeting) error {
	const query = `
UPDATE meetings
SET title = $2, meeting_date = $3, start_time = $4, end_time = $5, participants = $6, platform = $7,
    is_recording = $8, template_id = $9, audio_key = $10, processing_error = $11
WHERE id = $1`
	participants, err := marshalList(m.Participants)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query,
		m.ID,
		m.Title,
		DateOf(m.Date),
		m.StartTime,
		nullTime(m.EndTime),
		participants,
		m.Platform,
		m.IsRecording,
		nullString(m.TemplateID),
		nullString(m.AudioKey),
		nullString(m.ProcessingError),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// GetMeeting returns a meeting by ID.
func (r *PGRepo) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	query := `SELECT ` + meetingColumns + ` FROM meetings WHERE id = $1 LIMIT 1`
	m, err := scanMeeting(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Meeting{}, ErrNotFound
	}
	return m, err
}

// ListMeetings returns meetings newest first.
func (r *PGRepo) ListMeetings(ctx context.Context, limit, offset int) ([]Meeting, error) {
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + meetingColumns + ` FROM meetings ORDER BY start_time DESC, seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	} else if offset > 0 {
		query += ` OFFSET $1`
		args = append(args, offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Meeting{}
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteMeeting removes the meeting and its dependents in one transaction.
func (r *PGRepo) DeleteMeeting(ctx context.Context, id string) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := clearArtifactsTx(ctx, tx, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM meetings WHERE id = $1`, id)
		return err
	})
}

// ClearArtifacts removes a meeting's dependents in one transaction.
func (r *PGRepo) ClearArtifacts(ctx context.Context, meetingID string) error {
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		return clearArtifactsTx(ctx, tx, meetingID)
	})
}

func clearArtifactsTx(ctx context.Context, tx *sql.Tx, meetingID string) error {
	for _, table := range []string{"reminders", "action_items", "notes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE meeting_id = $1`, meetingID); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// CreateNote inserts a note.
func (r *PGRepo) CreateNote(ctx context.Context, n Note) error {
	const query = `
INSERT INTO notes (id, meeting_id, raw_transcript, enhanced_notes, summary, highlights, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	highlights, err := marshalList(n.Highlights)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		n.ID, n.MeetingID, n.RawTranscript, n.EnhancedNotes, n.Summary, highlights, n.CreatedAt, n.UpdatedAt)
	return err
}

// UpdateNote overwrites the editable fields of a note.
func (r *PGRepo) UpdateNote(ctx context.Context, n Note) error {
	const query = `
UPDATE notes
SET raw_transcript = $2, enhanced_notes = $3, summary = $4, highlights = $5, updated_at = $6
WHERE id = $1`
	highlights, err := marshalList(n.Highlights)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, n.ID, n.RawTranscript, n.EnhancedNotes, n.Summary, highlights, n.UpdatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const noteColumns = `id, meeting_id, raw_transcript, enhanced_notes, summary, highlights, created_at, updated_at`

// GetNote returns a note by ID.
func (r *PGRepo) GetNote(ctx context.Context, id string) (Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE id = $1 LIMIT 1`
	n, err := scanNote(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	return n, err
}

// ListNotes returns a meeting's notes in insertion order.
func (r *PGRepo) ListNotes(ctx context.Context, meetingID string) ([]Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE meeting_id = $1 ORDER BY seq`
	rows, err := r.DB.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CreateActionItems inserts items in order inside one transaction.
func (r *PGRepo) CreateActionItems(ctx context.Context, items []ActionItem) error {
	if len(items) == 0 {
		return nil
	}
	const query = `
INSERT INTO action_items (id, meeting_id, item_date, description, status, due_date, created_at, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, item := range items {
			if _, err := tx.ExecContext(ctx, query,
				item.ID,
				item.MeetingID,
				DateOf(item.Date),
				item.Description,
				item.Status,
				nullTime(item.DueDate),
				item.CreatedAt,
				nullTime(item.CompletedAt),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateActionItem overwrites the mutable fields of an action item.
func (r *PGRepo) UpdateActionItem(ctx context.Context, item ActionItem) error {
	const query = `
UPDATE action_items
SET description = $2, status = $3, due_date = $4, completed_at = $5
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		item.ID, item.Description, item.Status, nullTime(item.DueDate), nullTime(item.CompletedAt))
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const actionItemColumns = `id, meeting_id, item_date, description, status, due_date, created_at, completed_at`

// GetActionItem returns an action item by ID.
func (r *PGRepo) GetActionItem(ctx context.Context, id string) (ActionItem, error) {
	query := `SELECT ` + actionItemColumns + ` FROM action_items WHERE id = $1 LIMIT 1`
	item, err := scanActionItem(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ActionItem{}, ErrNotFound
	}
	return item, err
}

// ListActionItems returns a meeting's action items in insertion order.
func (r *PGRepo) ListActionItems(ctx context.Context, meetingID string) ([]ActionItem, error) {
	query := `SELECT ` + actionItemColumns + ` FROM action_items WHERE meeting_id = $1 ORDER BY seq`
	rows, err := r.DB.QueryContext(ctx, query, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ActionItem{}
	for rows.Next() {
		item, err := scanActionItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// CreateReminders inserts reminders in order inside one transaction.
func (r *PGRepo) CreateReminders(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return nil
	}
	const query = `
INSERT INTO reminders (id, meeting_id, title, description, due_date, reminder_date, status, priority, action_item_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	return db.WithTx(ctx, r.DB, func(tx *sql.Tx) error {
		for _, rem := range reminders {
			if _, err := tx.ExecContext(ctx, query,
				rem.ID,
				rem.MeetingID,
				rem.Title,
				rem.Description,
				rem.DueDate,
				rem.ReminderDate,
				rem.Status,
				rem.Priority,
				nullString(rem.ActionItemID),
				rem.CreatedAt,
				rem.UpdatedAt,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateReminder overwrites the mutable fields of a reminder.
func (r *PGRepo) UpdateReminder(ctx context.Context, rem Reminder) error {
	const query = `
UPDATE reminders
SET title = $2, description = $3, due_date = $4, reminder_date = $5, status = $6, priority = $7, updated_at = $8
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query,
		rem.ID, rem.Title, rem.Description, rem.DueDate, rem.ReminderDate, rem.Status, rem.Priority, rem.UpdatedAt)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

const reminderColumns = `id, meeting_id, title, description, due_date, reminder_date, status, priority,
       action_item_id, created_at, updated_at`

// GetReminder returns a reminder by ID.
func (r *PGRepo) GetReminder(ctx context.Context, id string) (Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1 LIMIT 1`
	rem, err := scanReminder(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	return rem, err
}

// ListReminders returns reminders matching filter.
func (r *PGRepo) ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error) {
	var where []string
	var args []any
	if filter.MeetingID != "" {
		args = append(args, filter.MeetingID)
		where = append(where, fmt.Sprintf("meeting_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.DueBefore != nil {
		args = append(args, *filter.DueBefore)
		where = append(where, fmt.Sprintf("reminder_date <= $%d", len(args)))
	}

	query := `SELECT ` + reminderColumns + ` FROM reminders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if filter.DueBefore != nil {
		query += ` ORDER BY reminder_date, seq`
	} else {
		query += ` ORDER BY seq`
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Reminder{}
	for rows.Next() {
		rem, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rem)
	}
	return out, rows.Err()
}

func scanMeeting(row rowScanner) (Meeting, error) {
	var m Meeting
	var endTime sql.NullTime
	var participants []byte
	var templateID, audioKey, processingError sql.NullString
	if err := row.Scan(
		&m.ID,
		&m.Title,
		&m.Date,
		&m.StartTime,
		&endTime,
		&participants,
		&m.Platform,
		&m.IsRecording,
		&templateID,
		&audioKey,
		&processingError,
	); err != nil {
		return Meeting{}, err
	}
	if endTime.Valid {
		t := endTime.Time
		m.EndTime = &t
	}
	list, err := unmarshalList(participants)
	if err != nil {
		return Meeting{}, err
	}
	m.Participants = list
	m.TemplateID = templateID.String
	m.AudioKey = audioKey.String
	m.ProcessingError = processingError.String
	return m, nil
}

func scanNote(row rowScanner) (Note, error) {
	var n Note
	var highlights []byte
	if err := row.Scan(
		&n.ID,
		&n.MeetingID,
		&n.RawTranscript,
		&n.EnhancedNotes,
		&n.Summary,
		&highlights,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return Note{}, err
	}
	list, err := unmarshalList(highlights)
	if err != nil {
		return Note{}, err
	}
	n.Highlights = list
	n.ActionItems = []string{}
	return n, nil
}

func scanActionItem(row rowScanner) (ActionItem, error) {
	var item ActionItem
	var dueDate, completedAt sql.NullTime
	if err := row.Scan(
		&item.ID,
		&item.MeetingID,
		&item.Date,
		&item.Description,
		&item.Status,
		&dueDate,
		&item.CreatedAt,
		&completedAt,
	); err != nil {
		return ActionItem{}, err
	}
	if dueDate.Valid {
		t := dueDate.Time
		item.DueDate = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		item.CompletedAt = &t
	}
	return item, nil
}

func scanReminder(row rowScanner) (Reminder, error) {
	var rem Reminder
	var actionItemID sql.NullString
	if err := row.Scan(
		&rem.ID,
		&rem.MeetingID,
		&rem.Title,
		&rem.Description,
		&rem.DueDate,
		&rem.ReminderDate,
		&rem.Status,
		&rem.Priority,
		&actionItemID,
		&rem.CreatedAt,
		&rem.UpdatedAt,
	); err != nil {
		return Reminder{}, err
	}
	rem.ActionItemID = actionItemID.String
	return rem, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func unmarshalList(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

var _ Repo = (*PGRepo)(nil)
