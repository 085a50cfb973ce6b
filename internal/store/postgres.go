package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/martinmana808/braintube/internal/models"
)

// Postgres implements Store using PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close
// when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// isUniqueViolation reports whether err is a Postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// InsertChannel creates a new channel row with its (possibly empty) cache.
func (p *Postgres) InsertChannel(ctx context.Context, ch *models.Channel) error {
	cached, err := json.Marshal(ch.CachedVideos)
	if err != nil {
		return fmt.Errorf("marshal cached_videos: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO channels (id, name, thumbnail, uploads_playlist_id, visible, category_id, cached_videos, last_synced_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		ch.ID, ch.Name, ch.Thumbnail, ch.UploadsPlaylistID, ch.Visible, ch.CategoryID, cached, ch.LastSyncedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("channel %s: %w", ch.ID, ErrDuplicate)
		}
		return fmt.Errorf("InsertChannel: %w", err)
	}
	return nil
}

// UpdateChannelCache persists the merged video set and the sync timestamp.
func (p *Postgres) UpdateChannelCache(ctx context.Context, channelID string, videos []models.Video, syncedAt time.Time) error {
	cached, err := json.Marshal(videos)
	if err != nil {
		return fmt.Errorf("marshal cached_videos: %w", err)
	}
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET cached_videos = $2, last_synced_at = $3 WHERE id = $1`,
		channelID, cached, syncedAt,
	)
	if err != nil {
		return fmt.Errorf("UpdateChannelCache: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return nil
}

// SetChannelVisible toggles the sync-visibility flag.
func (p *Postgres) SetChannelVisible(ctx context.Context, channelID string, visible bool) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET visible = $2 WHERE id = $1`, channelID, visible)
	if err != nil {
		return fmt.Errorf("SetChannelVisible: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return nil
}

// SetChannelCategory assigns or clears the channel's category reference.
func (p *Postgres) SetChannelCategory(ctx context.Context, channelID string, categoryID *int64) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE channels SET category_id = $2 WHERE id = $1`, channelID, categoryID)
	if err != nil {
		return fmt.Errorf("SetChannelCategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return nil
}

// DeleteChannel removes a channel row.
func (p *Postgres) DeleteChannel(ctx context.Context, channelID string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("DeleteChannel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return nil
}

// ListChannels returns all channels in insertion order.
func (p *Postgres) ListChannels(ctx context.Context) ([]models.Channel, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, thumbnail, uploads_playlist_id, visible, category_id, cached_videos, last_synced_at, created_at
		 FROM channels ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	defer rows.Close()

	var channels []models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, *ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListChannels: %w", err)
	}
	return channels, nil
}

// GetChannel returns a single channel by ID.
func (p *Postgres) GetChannel(ctx context.Context, channelID string) (*models.Channel, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, thumbnail, uploads_playlist_id, visible, category_id, cached_videos, last_synced_at, created_at
		 FROM channels WHERE id = $1`, channelID)
	if err != nil {
		return nil, fmt.Errorf("GetChannel: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("GetChannel: %w", err)
		}
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return scanChannel(rows)
}

func scanChannel(rows pgx.Rows) (*models.Channel, error) {
	var (
		ch     models.Channel
		cached []byte
	)
	if err := rows.Scan(&ch.ID, &ch.Name, &ch.Thumbnail, &ch.UploadsPlaylistID,
		&ch.Visible, &ch.CategoryID, &cached, &ch.LastSyncedAt, &ch.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	if len(cached) > 0 {
		if err := json.Unmarshal(cached, &ch.CachedVideos); err != nil {
			return nil, fmt.Errorf("unmarshal cached_videos for %s: %w", ch.ID, err)
		}
	}
	if ch.CachedVideos == nil {
		ch.CachedVideos = []models.Video{}
	}
	return &ch, nil
}

// CreateCategory inserts a category. The unique index on lower(name) makes
// the case-insensitive duplicate check race-free.
func (p *Postgres) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	var cat models.Category
	err := p.pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, name,
	).Scan(&cat.ID, &cat.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %q: %w", name, ErrDuplicate)
		}
		return nil, fmt.Errorf("CreateCategory: %w", err)
	}
	return &cat, nil
}

// DeleteCategory removes a category and detaches its channels.
func (p *Postgres) DeleteCategory(ctx context.Context, categoryID int64) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("DeleteCategory: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE channels SET category_id = NULL WHERE category_id = $1`, categoryID); err != nil {
		return fmt.Errorf("DeleteCategory: detach channels: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
	if err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", categoryID, ErrNotFound)
	}
	return tx.Commit(ctx)
}

// ListCategories returns all categories ordered by name.
func (p *Postgres) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := p.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		var cat models.Category
		if err := rows.Scan(&cat.ID, &cat.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: %w", err)
	}
	return categories, nil
}

// UpsertVideoState writes the full annotation row keyed by video ID.
func (p *Postgres) UpsertVideoState(ctx context.Context, st *models.VideoState) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO video_states (video_id, seen, saved, deleted, custom_title, summary, notes, last_updated)
		 VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), $8)
		 ON CONFLICT (video_id) DO UPDATE SET
		   seen = EXCLUDED.seen, saved = EXCLUDED.saved, deleted = EXCLUDED.deleted,
		   custom_title = EXCLUDED.custom_title, summary = EXCLUDED.summary,
		   notes = EXCLUDED.notes, last_updated = EXCLUDED.last_updated`,
		st.VideoID, st.Seen, st.Saved, st.Deleted, st.CustomTitle, st.Summary, st.Notes, st.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("UpsertVideoState: %w", err)
	}
	return nil
}

// ListVideoStates returns every annotation row keyed by video ID.
func (p *Postgres) ListVideoStates(ctx context.Context) (map[string]models.VideoState, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT video_id, seen, saved, deleted,
		        COALESCE(custom_title,''), COALESCE(summary,''), COALESCE(notes,''), last_updated
		 FROM video_states`)
	if err != nil {
		return nil, fmt.Errorf("ListVideoStates: %w", err)
	}
	defer rows.Close()

	states := make(map[string]models.VideoState)
	for rows.Next() {
		var st models.VideoState
		if err := rows.Scan(&st.VideoID, &st.Seen, &st.Saved, &st.Deleted,
			&st.CustomTitle, &st.Summary, &st.Notes, &st.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan video state: %w", err)
		}
		states[st.VideoID] = st
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListVideoStates: %w", err)
	}
	return states, nil
}
