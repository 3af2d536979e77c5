package meetings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// MemoryRepo keeps every entity in flat insertion-ordered slices and is safe
// for concurrent use. When a snapshot path is set, every mutation rewrites
// the snapshot file.
type MemoryRepo struct {
	mu   sync.RWMutex
	data snapshot
	path string
}

type snapshot struct {
	Meetings    []Meeting    `json:"meetings"`
	Notes       []Note       `json:"notes"`
	ActionItems []ActionItem `json:"actionItems"`
	Reminders   []Reminder   `json:"reminders"`
}

// NewMemoryRepo constructs a MemoryRepo without persistence.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

// OpenSnapshot loads the snapshot at path, if any, and persists later
// mutations to it.
func OpenSnapshot(path string) (*MemoryRepo, error) {
	r := &MemoryRepo{path: path}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if len(raw) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(raw, &r.data); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return r, nil
}

// persist must be called with the write lock held.
func (r *MemoryRepo) persist() error {
	if r.path == "" {
		return nil
	}
	payload, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *MemoryRepo) mutate(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(); err != nil {
		return err
	}
	return r.persist()
}

// CreateMeeting stores the meeting.
func (r *MemoryRepo) CreateMeeting(ctx context.Context, m Meeting) error {
	return r.mutate(ctx, func() error {
		r.data.Meetings = append(r.data.Meetings, m)
		return nil
	})
}

// UpdateMeeting replaces a stored meeting.
func (r *MemoryRepo) UpdateMeeting(ctx context.Context, m Meeting) error {
	return r.mutate(ctx, func() error {
		for i := range r.data.Meetings {
			if r.data.Meetings[i].ID == m.ID {
				r.data.Meetings[i] = m
				return nil
			}
		}
		return ErrNotFound
	})
}

// GetMeeting returns a meeting by id.
func (r *MemoryRepo) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	if err := ctx.Err(); err != nil {
		return Meeting{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.data.Meetings {
		if m.ID == id {
			return m, nil
		}
	}
	return Meeting{}, ErrNotFound
}

// ListMeetings returns meetings newest first with limit/offset.
func (r *MemoryRepo) ListMeetings(ctx context.Context, limit, offset int) ([]Meeting, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	out := make([]Meeting, len(r.data.Meetings))
	copy(out, r.data.Meetings)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	if offset >= len(out) {
		return []Meeting{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

// DeleteMeeting removes the meeting and its dependents.
func (r *MemoryRepo) DeleteMeeting(ctx context.Context, id string) error {
	return r.mutate(ctx, func() error {
		r.data.Meetings = filterOut(r.data.Meetings, func(m Meeting) bool { return m.ID == id })
		r.clearArtifacts(id)
		return nil
	})
}

// ClearArtifacts removes a meeting's dependents.
func (r *MemoryRepo) ClearArtifacts(ctx context.Context, meetingID string) error {
	return r.mutate(ctx, func() error {
		r.clearArtifacts(meetingID)
		return nil
	})
}

func (r *MemoryRepo) clearArtifacts(meetingID string) {
	r.data.Notes = filterOut(r.data.Notes, func(n Note) bool { return n.MeetingID == meetingID })
	r.data.ActionItems = filterOut(r.data.ActionItems, func(a ActionItem) bool { return a.MeetingID == meetingID })
	r.data.Reminders = filterOut(r.data.Reminders, func(rem Reminder) bool { return rem.MeetingID == meetingID })
}

// CreateNote stores the note.
func (r *MemoryRepo) CreateNote(ctx context.Context, n Note) error {
	return r.mutate(ctx, func() error {
		r.data.Notes = append(r.data.Notes, n)
		return nil
	})
}

// UpdateNote replaces a stored note.
func (r *MemoryRepo) UpdateNote(ctx context.Context, n Note) error {
	return r.mutate(ctx, func() error {
		for i := range r.data.Notes {
			if r.data.Notes[i].ID == n.ID {
				r.data.Notes[i] = n
				return nil
			}
		}
		return ErrNotFound
	})
}

// GetNote returns a note by id.
func (r *MemoryRepo) GetNote(ctx context.Context, id string) (Note, error) {
	if err := ctx.Err(); err != nil {
		return Note{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.data.Notes {
		if n.ID == id {
			return n, nil
		}
	}
	return Note{}, ErrNotFound
}

// ListNotes returns a meeting's notes in insertion order.
func (r *MemoryRepo) ListNotes(ctx context.Context, meetingID string) ([]Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keep(r.data.Notes, func(n Note) bool { return n.MeetingID == meetingID }), nil
}

// CreateActionItems appends items in order.
func (r *MemoryRepo) CreateActionItems(ctx context.Context, items []ActionItem) error {
	if len(items) == 0 {
		return ctx.Err()
	}
	return r.mutate(ctx, func() error {
		r.data.ActionItems = append(r.data.ActionItems, items...)
		return nil
	})
}

// UpdateActionItem replaces a stored action item.
func (r *MemoryRepo) UpdateActionItem(ctx context.Context, item ActionItem) error {
	return r.mutate(ctx, func() error {
		for i := range r.data.ActionItems {
			if r.data.ActionItems[i].ID == item.ID {
				r.data.ActionItems[i] = item
				return nil
			}
		}
		return ErrNotFound
	})
}

// GetActionItem returns an action item by id.
func (r *MemoryRepo) GetActionItem(ctx context.Context, id string) (ActionItem, error) {
	if err := ctx.Err(); err != nil {
		return ActionItem{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.data.ActionItems {
		if a.ID == id {
			return a, nil
		}
	}
	return ActionItem{}, ErrNotFound
}

// ListActionItems returns a meeting's action items in insertion order.
func (r *MemoryRepo) ListActionItems(ctx context.Context, meetingID string) ([]ActionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keep(r.data.ActionItems, func(a ActionItem) bool { return a.MeetingID == meetingID }), nil
}

// CreateReminders appends reminders in order.
func (r *MemoryRepo) CreateReminders(ctx context.Context, reminders []Reminder) error {
	if len(reminders) == 0 {
		return ctx.Err()
	}
	return r.mutate(ctx, func() error {
		r.data.Reminders = append(r.data.Reminders, reminders...)
		return nil
	})
}

// UpdateReminder replaces a stored reminder.
func (r *MemoryRepo) UpdateReminder(ctx context.Context, rem Reminder) error {
	return r.mutate(ctx, func() error {
		for i := range r.data.Reminders {
			if r.data.Reminders[i].ID == rem.ID {
				r.data.Reminders[i] = rem
				return nil
			}
		}
		return ErrNotFound
	})
}

// GetReminder returns a reminder by id.
func (r *MemoryRepo) GetReminder(ctx context.Context, id string) (Reminder, error) {
	if err := ctx.Err(); err != nil {
		return Reminder{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rem := range r.data.Reminders {
		if rem.ID == id {
			return rem, nil
		}
	}
	return Reminder{}, ErrNotFound
}

// ListReminders returns reminders matching filter.
func (r *MemoryRepo) ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := keep(r.data.Reminders, func(rem Reminder) bool {
		if filter.MeetingID != "" && rem.MeetingID != filter.MeetingID {
			return false
		}
		if filter.Status != "" && rem.Status != filter.Status {
			return false
		}
		if filter.DueBefore != nil && rem.ReminderDate.After(*filter.DueBefore) {
			return false
		}
		return true
	})
	r.mu.RUnlock()

	if filter.DueBefore != nil {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ReminderDate.Before(out[j].ReminderDate)
		})
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func keep[T any](items []T, match func(T) bool) []T {
	out := make([]T, 0)
	for _, item := range items {
		if match(item) {
			out = append(out, item)
		}
	}
	return out
}

func filterOut[T any](items []T, drop func(T) bool) []T {
	out := items[:0]
	for _, item := range items {
		if !drop(item) {
			out = append(out, item)
		}
	}
	return out
}

var _ Repo = (*MemoryRepo)(nil)
