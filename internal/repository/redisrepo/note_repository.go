// Package redisrepo stores notes in Redis.
//
// Layout (all keys share the {prefix} hash tag so scripts stay in one slot):
//
//	{prefix}:note:<id>   hash with the note fields
//	{prefix}:queued      zset of queued ids scored by creation sequence (FIFO)
//	{prefix}:processing  zset of processing ids scored by claim time (µs)
//	{prefix}:all         zset of every id scored by creation sequence
//	{prefix}:seq         creation sequence counter
//
// Claim and Update run as Lua scripts, so each transition is one atomic
// step even with many workers on the same Redis.
package redisrepo

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"note-summary-service/internal/entity"
)

const (
	DefaultPrefix = "notes"
	scanPage      = 100
)

type NoteRepository struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewNoteRepository(rdb redis.UniversalClient, prefix string) *NoteRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &NoteRepository{
		rdb:    rdb,
		prefix: "{" + prefix + "}",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *NoteRepository) noteKey(id string) string { return r.prefix + ":note:" + id }
func (r *NoteRepository) queuedKey() string        { return r.prefix + ":queued" }
func (r *NoteRepository) processingKey() string    { return r.prefix + ":processing" }
func (r *NoteRepository) allKey() string           { return r.prefix + ":all" }
func (r *NoteRepository) seqKey() string           { return r.prefix + ":seq" }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func (r *NoteRepository) Create(ctx context.Context, owner, text string) (*entity.Note, error) {
	id := uuid.New()
	now := r.now()

	keys := []string{r.noteKey(id.String()), r.queuedKey(), r.allKey(), r.seqKey()}
	if err := createScript.Run(ctx, r.rdb, keys, id.String(), owner, text, formatTime(now)).Err(); err != nil {
		return nil, entity.NewStoreError("create note", err)
	}

	return &entity.Note{
		ID:         id,
		Owner:      owner,
		Text:       text,
		Status:     entity.StatusQueued,
		EligibleAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Note, error) {
	m, err := r.rdb.HGetAll(ctx, r.noteKey(id.String())).Result()
	if err != nil {
		return nil, entity.NewStoreError("get note", err)
	}
	if len(m) == 0 {
		return nil, entity.ErrNotFound
	}
	n, err := decodeNote(m)
	if err != nil {
		return nil, entity.NewStoreError("get note", err)
	}
	return n, nil
}

// loadMany fetches notes in one pipeline, keeping the order of ids and
// skipping ids whose hash has disappeared.
func (r *NoteRepository) loadMany(ctx context.Context, ids []string) ([]*entity.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range ids {
			p.HGetAll(ctx, r.noteKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]*entity.Note, 0, len(cmds))
	for _, cmd := range cmds {
		m := cmd.(*redis.MapStringStringCmd).Val()
		if len(m) == 0 {
			continue
		}
		n, err := decodeNote(m)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// List scans every note; it suits the modest volumes this backend is meant for.
func (r *NoteRepository) List(ctx context.Context, f entity.NoteFilter) ([]*entity.Note, int64, error) {
	ids, err := r.rdb.ZRevRange(ctx, r.allKey(), 0, -1).Result()
	if err != nil {
		return nil, 0, entity.NewStoreError("list notes", err)
	}
	notes, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, 0, entity.NewStoreError("list notes", err)
	}

	q := strings.ToLower(f.Query)
	matched := notes[:0]
	for _, n := range notes {
		if f.Owner != "" && n.Owner != f.Owner {
			continue
		}
		if f.Status != "" && n.Status != f.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(n.Text), q) {
			continue
		}
		matched = append(matched, n)
	}

	total := int64(len(matched))
	if f.Offset > 0 {
		if f.Offset >= len(matched) {
			return nil, total, nil
		}
		matched = matched[f.Offset:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (r *NoteRepository) FetchEligible(ctx context.Context, now time.Time, limit int) ([]*entity.Note, error) {
	var out []*entity.Note
	for start := int64(0); ; start += scanPage {
		ids, err := r.rdb.ZRange(ctx, r.queuedKey(), start, start+scanPage-1).Result()
		if err != nil {
			return nil, entity.NewStoreError("fetch eligible", err)
		}
		notes, err := r.loadMany(ctx, ids)
		if err != nil {
			return nil, entity.NewStoreError("fetch eligible", err)
		}
		for _, n := range notes {
			if !n.Eligible(now) {
				continue
			}
			out = append(out, n)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
		if len(ids) < scanPage {
			return out, nil
		}
	}
}

func (r *NoteRepository) Claim(ctx context.Context, id uuid.UUID) (int, bool, error) {
	now := r.now()
	keys := []string{r.noteKey(id.String()), r.queuedKey(), r.processingKey()}

	attempts, err := claimScript.Run(ctx, r.rdb, keys,
		id.String(), formatTime(now), now.UnixMicro(),
	).Int64()
	if err != nil {
		return 0, false, entity.NewStoreError("claim", err)
	}
	if attempts < 0 {
		return 0, false, nil
	}
	return int(attempts), true, nil
}

func (r *NoteRepository) Update(ctx context.Context, id uuid.UUID, upd entity.Update) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	eligibleAt := ""
	if upd.To == entity.StatusQueued {
		eligibleAt = formatTime(upd.EligibleAt)
	}
	keys := []string{r.noteKey(id.String()), r.queuedKey(), r.processingKey()}

	res, err := updateScript.Run(ctx, r.rdb, keys,
		id.String(), string(upd.From), string(upd.To),
		upd.Summary, eligibleAt, upd.Error, formatTime(r.now()), upd.Attempts,
	).Int64()
	if err != nil {
		return entity.NewStoreError("update note", err)
	}
	switch res {
	case -2:
		return entity.ErrNotFound
	case -1:
		return entity.ErrConflict
	}
	return nil
}

func (r *NoteRepository) ListStale(ctx context.Context, before time.Time, limit int) ([]*entity.Note, error) {
	ids, err := r.rdb.ZRangeByScore(ctx, r.processingKey(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(before.UnixMicro(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, entity.NewStoreError("list stale", err)
	}
	notes, err := r.loadMany(ctx, ids)
	if err != nil {
		return nil, entity.NewStoreError("list stale", err)
	}
	return notes, nil
}

var errCorruptNote = errors.New("corrupt note hash")

func decodeNote(m map[string]string) (*entity.Note, error) {
	id, err := uuid.Parse(m["id"])
	if err != nil {
		return nil, errCorruptNote
	}
	attempts, err := strconv.Atoi(m["attempts"])
	if err != nil {
		return nil, errCorruptNote
	}

	n := &entity.Note{
		ID:       id,
		Owner:    m["owner"],
		Text:     m["text"],
		Status:   entity.NoteStatus(m["status"]),
		Attempts: attempts,
	}
	if s, ok := m["summary"]; ok {
		n.Summary = &s
	}
	if e, ok := m["last_error"]; ok {
		n.LastError = &e
	}

	for field, dst := range map[string]*time.Time{
		"eligible_at": &n.EligibleAt,
		"created_at":  &n.CreatedAt,
		"updated_at":  &n.UpdatedAt,
	} {
		t, err := time.Parse(time.RFC3339Nano, m[field])
		if err != nil {
			return nil, errCorruptNote
		}
		*dst = t
	}
	return n, nil
}
