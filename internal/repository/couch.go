package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"

	"github.com/go-kivik/kivik/v4"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Attempts for read-modify-write loops that lose a revision race.
const maxUpdateAttempts = 5

// pageSize is the row limit of each _find request. Listings follow the
// returned bookmark until the result set is exhausted.
const pageSize = 200

const (
	docTypeUser        = "user"
	docTypeReservation = "reservation"
	docTypePost        = "post"
	docTypeComment     = "comment"
	docTypeFollow      = "follow"
)

func isNotFound(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusNotFound
}

func isConflict(err error) bool {
	return kivik.HTTPStatus(err) == http.StatusConflict
}

// EnsureDatabase creates dbName when it does not exist yet.
func EnsureDatabase(ctx context.Context, client *kivik.Client, dbName string) (bool, error) {
	exists, err := client.DBExists(ctx, dbName)
	if err != nil {
		return false, fmt.Errorf("failed to check database existence: %w", err)
	}
	if exists {
		return false, nil
	}

	if err := client.CreateDB(ctx, dbName); err != nil {
		return false, fmt.Errorf("failed to create database: %w", err)
	}
	return true, nil
}

type mangoIndex struct {
	name   string
	fields []string
}

var indexes = []mangoIndex{
	{name: "type", fields: []string{"type"}},
	{name: "type-post", fields: []string{"type", "post_id"}},
	{name: "type-follower", fields: []string{"type", "follower_id"}},
	{name: "type-following", fields: []string{"type", "following_id"}},
}

// EnsureIndexes creates the Mango indexes the list queries rely on.
// CouchDB treats re-creating an identical index as a no-op.
func EnsureIndexes(ctx context.Context, client *kivik.Client, dbName string) error {
	db := client.DB(dbName)
	for _, idx := range indexes {
		def := map[string]interface{}{"fields": idx.fields}
		if err := db.CreateIndex(ctx, "", idx.name, def); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

const designDocID = "_design/social"

const (
	viewPostsByAuthor      = "posts_by_author"
	viewFollowsByFollower  = "follows_by_follower"
	viewFollowsByFollowing = "follows_by_following"
)

type view struct {
	Map    string `json:"map"`
	Reduce string `json:"reduce,omitempty"`
}

type designDoc struct {
	ID       string          `json:"_id"`
	Rev      string          `json:"_rev,omitempty"`
	Language string          `json:"language"`
	Views    map[string]view `json:"views"`
}

func countingView(docType, field string) view {
	return view{
		Map:    fmt.Sprintf("function (doc) { if (doc.type === %q) { emit(doc.%s, null); } }", docType, field),
		Reduce: "_count",
	}
}

var views = map[string]view{
	viewPostsByAuthor:      countingView(docTypePost, "author_id"),
	viewFollowsByFollower:  countingView(docTypeFollow, "follower_id"),
	viewFollowsByFollowing: countingView(docTypeFollow, "following_id"),
}

// EnsureViews writes the design document holding the counting views. It
// leaves an up-to-date design document untouched so the views are not
// rebuilt on every start.
func EnsureViews(ctx context.Context, client *kivik.Client, dbName string) error {
	db := client.DB(dbName)

	var current designDoc
	if err := db.Get(ctx, designDocID).ScanDoc(&current); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to read design document: %w", err)
	}
	if maps.Equal(current.Views, views) {
		return nil
	}

	doc := designDoc{
		ID:       designDocID,
		Rev:      current.Rev,
		Language: "javascript",
		Views:    views,
	}
	if _, err := db.Put(ctx, designDocID, doc); err != nil {
		return fmt.Errorf("failed to write design document: %w", err)
	}
	return nil
}

// countView returns the number of rows a counting view holds for key.
func countView(ctx context.Context, db *kivik.DB, viewName, key string) (int, error) {
	rows := db.Query(ctx, designDocID, viewName, kivik.Params(map[string]interface{}{
		"key":    key,
		"reduce": true,
	}))
	defer rows.Close()

	n := 0
	if rows.Next() {
		if err := rows.ScanValue(&n); err != nil {
			return 0, fmt.Errorf("failed to read %s count: %w", viewName, err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to query %s: %w", viewName, err)
	}
	return n, nil
}

func findQuery(selector map[string]interface{}, bookmark string) map[string]interface{} {
	query := map[string]interface{}{
		"selector": selector,
		"limit":    pageSize,
	}
	if bookmark != "" {
		query["bookmark"] = bookmark
	}
	return query
}

// findAll runs a Mango query page by page and hands every row to scan.
func findAll(ctx context.Context, db *kivik.DB, selector map[string]interface{}, scan func(json.RawMessage) error) error {
	bookmark := ""
	for {
		rows := db.Find(ctx, findQuery(selector, bookmark))

		n := 0
		for rows.Next() {
			var doc json.RawMessage
			if err := rows.ScanDoc(&doc); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan document: %w", err)
			}
			if err := scan(doc); err != nil {
				rows.Close()
				return err
			}
			n++
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to query documents: %w", err)
		}

		if n < pageSize {
			return nil
		}
		meta, err := rows.Metadata()
		if err != nil {
			return fmt.Errorf("failed to read query metadata: %w", err)
		}
		if meta.Bookmark == "" || meta.Bookmark == bookmark {
			return nil
		}
		bookmark = meta.Bookmark
	}
}

// scanInto returns a findAll callback that decodes each row into a T and
// passes it to add.
func scanInto[T any](add func(*T)) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("failed to decode document: %w", err)
		}
		add(&doc)
		return nil
	}
}
