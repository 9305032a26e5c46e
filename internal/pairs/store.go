package pairs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"bobbin/internal/config"
)

const (
	tablePairs = "pairs"

	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// Fixed-width so created_at sorts lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

var pairColumns = []string{"id", "dir", "base", "video_gid", "audio_gid", "created_at", "merged_at"}

// Pair correlates the two tasks of a split download.
type Pair struct {
	ID        uuid.UUID
	Dir       string
	Base      string
	VideoGID  string
	AudioGID  string
	CreatedAt time.Time
	MergedAt  *time.Time
}

// VideoPath returns the video half's path.
func (p Pair) VideoPath() string { return filepath.Join(p.Dir, VideoName(p.Base)) }

// AudioPath returns the audio half's path.
func (p Pair) AudioPath() string { return filepath.Join(p.Dir, AudioName(p.Base)) }

// OutputPath returns the merged output's path.
func (p Pair) OutputPath() string { return filepath.Join(p.Dir, OutputName(p.Base)) }

// Sibling returns the other half's gid and path for gid.
func (p Pair) Sibling(gid string) (string, string, bool) {
	switch gid {
	case p.VideoGID:
		return p.AudioGID, p.AudioPath(), true
	case p.AudioGID:
		return p.VideoGID, p.VideoPath(), true
	default:
		return "", "", false
	}
}

// Store persists pairs in SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open initializes or connects to the registry database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// OpenFromConfig opens the registry under the configured state directory.
func OpenFromConfig(cfg *config.Config) (*Store, error) {
	return Open(cfg.PairsDBPath())
}

// Path returns the database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores a new pair and returns it with its generated id.
func (s *Store) Record(ctx context.Context, dir, base, videoGID, audioGID string) (Pair, error) {
	pair := Pair{
		ID:       uuid.New(),
		Dir:      dir,
		Base:     base,
		VideoGID: videoGID,
		AudioGID: audioGID,
	}
	if s == nil {
		pair.CreatedAt = time.Now()
		return pair, nil
	}
	pair.CreatedAt = s.now().UTC()

	query, args, err := squirrel.
		Insert(tablePairs).
		Columns(pairColumns[:6]...).
		Values(pair.ID.String(), dir, base, videoGID, audioGID, formatTime(pair.CreatedAt)).
		ToSql()
	if err != nil {
		return Pair{}, fmt.Errorf("build insert: %w", err)
	}
	if err := s.exec(ctx, query, args...); err != nil {
		return Pair{}, fmt.Errorf("record pair: %w", err)
	}
	return pair, nil
}

// FindByGID returns the pair containing gid as either half.
func (s *Store) FindByGID(ctx context.Context, gid string) (Pair, bool, error) {
	if s == nil || strings.TrimSpace(gid) == "" {
		return Pair{}, false, nil
	}
	return s.findOne(ctx, squirrel.Or{
		squirrel.Eq{"video_gid": gid},
		squirrel.Eq{"audio_gid": gid},
	})
}

// FindByBase returns the most recent pair for base in dir.
func (s *Store) FindByBase(ctx context.Context, dir, base string) (Pair, bool, error) {
	if s == nil {
		return Pair{}, false, nil
	}
	return s.findOne(ctx, squirrel.Eq{"dir": dir, "base": base})
}

// MarkMerged stamps the pair as merged.
func (s *Store) MarkMerged(ctx context.Context, id uuid.UUID) error {
	if s == nil {
		return nil
	}
	query, args, err := squirrel.
		Update(tablePairs).
		Set("merged_at", formatTime(s.now().UTC())).
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	return s.exec(ctx, query, args...)
}

// Delete removes the pair.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil {
		return nil
	}
	query, args, err := squirrel.
		Delete(tablePairs).
		Where(squirrel.Eq{"id": id.String()}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	return s.exec(ctx, query, args...)
}

func (s *Store) findOne(ctx context.Context, where squirrel.Sqlizer) (Pair, bool, error) {
	query, args, err := squirrel.
		Select(pairColumns...).
		From(tablePairs).
		Where(where).
		OrderBy("created_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return Pair{}, false, fmt.Errorf("build select: %w", err)
	}

	var (
		id, created string
		merged      sql.NullString
		pair        Pair
	)
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&id, &pair.Dir, &pair.Base, &pair.VideoGID, &pair.AudioGID, &created, &merged)
	if errors.Is(err, sql.ErrNoRows) {
		return Pair{}, false, nil
	}
	if err != nil {
		return Pair{}, false, fmt.Errorf("query pair: %w", err)
	}

	if pair.ID, err = uuid.Parse(id); err != nil {
		return Pair{}, false, fmt.Errorf("parse pair id %q: %w", id, err)
	}
	pair.CreatedAt = parseTime(created)
	if merged.Valid && merged.String != "" {
		t := parseTime(merged.String)
		pair.MergedAt = &t
	}
	return pair, true, nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		_, lastErr = s.db.ExecContext(ctx, query, args...)
		if lastErr == nil || !isSQLiteBusy(lastErr) {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func isSQLiteBusy(err error) bool {
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
