package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/hoanghai1803/threadscout/internal/models"
)

// DefaultListLimit caps ListItems when no limit is given.
const DefaultListLimit = 50

var itemColumns = []string{
	"id", "item_id", "pipeline", "source_tag", "title", "link", "author",
	"published_at", "body", "snippet", "accepted", "reason", "extra",
	"raw_response", "status", "created_at", "updated_at",
}

// ItemFilter narrows ListItems. Zero fields match everything.
type ItemFilter struct {
	Status   models.ItemStatus
	Pipeline string
	Limit    int
}

// UpsertItems stores a batch of classified items for pipeline inside one
// transaction. An item whose id is already stored is left untouched and
// still counts as stored. It returns the number of items handled.
func (s *Store) UpsertItems(ctx context.Context, pipeline string, batch []models.Classified) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items
			(item_id, pipeline, source_tag, title, link, author, published_at,
			 body, snippet, accepted, reason, extra, raw_response)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(item_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("preparing item insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range batch {
		if c.Item.ID == "" {
			return 0, fmt.Errorf("storing item %q: empty id", c.Item.Title)
		}

		var publishedAt any
		if c.Item.PublishedAt != nil {
			publishedAt = formatTime(*c.Item.PublishedAt)
		}

		var extra any
		if len(c.Result.Extra) > 0 {
			b, err := json.Marshal(c.Result.Extra)
			if err != nil {
				return 0, fmt.Errorf("encoding extra for %q: %w", c.Item.ID, err)
			}
			extra = string(b)
		}

		if _, err := stmt.ExecContext(ctx,
			c.Item.ID, pipeline, c.Item.SourceTag, c.Item.Title, c.Item.Link,
			nullableString(c.Item.Author), publishedAt,
			nullableString(c.Item.Body), nullableString(c.Item.BodySnippet),
			c.Result.Accepted, c.Result.Reason, extra, c.Result.RawResponse,
		); err != nil {
			return 0, fmt.Errorf("storing item %q: %w", c.Item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing items: %w", err)
	}
	return len(batch), nil
}

// GetItem returns the stored item with the given upstream id, or
// ErrNotFound.
func (s *Store) GetItem(ctx context.Context, itemID string) (*models.StoredItem, error) {
	query, args, err := sq.Select(itemColumns...).
		From("items").
		Where(sq.Eq{"item_id": itemID}).
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building item query: %w", err)
	}

	item, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying item %q: %w", itemID, err)
	}
	return item, nil
}

// ListItems returns stored items matching f, newest first.
func (s *Store) ListItems(ctx context.Context, f ItemFilter) ([]models.StoredItem, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	q := sq.Select(itemColumns...).
		From("items").
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Question)
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}
	if f.Pipeline != "" {
		q = q.Where(sq.Eq{"pipeline": f.Pipeline})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building item list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []models.StoredItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}
	return items, nil
}

// UpdateItemStatus moves a stored item to status. It returns
// ErrInvalidStatus for an unknown status and ErrNotFound for an unknown id.
func (s *Store) UpdateItemStatus(ctx context.Context, itemID string, status models.ItemStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w %q: must be one of new, reviewed, in_progress, implemented, rejected", ErrInvalidStatus, status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = datetime('now') WHERE item_id = ?`,
		string(status), itemID,
	)
	if err != nil {
		return fmt.Errorf("updating item status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.StoredItem, error) {
	var (
		item        models.StoredItem
		author      sql.NullString
		publishedAt sql.NullString
		body        sql.NullString
		snippet     sql.NullString
		extra       sql.NullString
		raw         sql.NullString
		status      string
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(
		&item.ID, &item.ItemID, &item.Pipeline, &item.SourceTag, &item.Title,
		&item.Link, &author, &publishedAt, &body, &snippet, &item.Accepted,
		&item.Reason, &extra, &raw, &status, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	item.Author = author.String
	item.Body = body.String
	item.Snippet = snippet.String
	item.Status = models.ItemStatus(status)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	if publishedAt.Valid {
		item.PublishedAt = parseTimePtr(&publishedAt.String)
	}
	if raw.Valid {
		v := raw.String
		item.RawResponse = &v
	}
	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &item.Extra); err != nil {
			return nil, fmt.Errorf("decoding extra: %w", err)
		}
	}
	return &item, nil
}
