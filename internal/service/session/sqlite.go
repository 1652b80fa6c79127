package session

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/retailworks/shopchat/internal/model/chat"
)

// historyLimit bounds the per-user local history.
const historyLimit = 10

// SQLiteCache is the durable fallback behind the resolver. Per the
// Cache contract it absorbs storage failures: every method logs and
// returns a zero value instead of erroring.
type SQLiteCache struct {
	db *sql.DB
}

// NewSQLiteCache opens (or creates) the cache database at dbPath with
// WAL mode enabled.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping cache database: %w", err)
	}

	cache := &SQLiteCache{db: db}
	if err := cache.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}
	return cache, nil
}

func (c *SQLiteCache) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		user_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		last_used INTEGER NOT NULL,
		message_count INTEGER NOT NULL DEFAULT 0,
		agent_mode INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, session_id)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_recency ON sessions(user_id, last_used);

	CREATE TABLE IF NOT EXISTS active_sessions (
		user_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := c.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ActiveID returns the active session pointer for the user.
func (c *SQLiteCache) ActiveID(userID string) (string, bool) {
	var id string
	err := c.db.QueryRow(
		`SELECT session_id FROM active_sessions WHERE user_id = ?`, userID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false
	}
	if err != nil {
		log.Printf("[session] cache read active: %v", err)
		return "", false
	}
	return id, true
}

// SetActive points the user at a session id.
func (c *SQLiteCache) SetActive(userID, id string) {
	_, err := c.db.Exec(`
		INSERT INTO active_sessions (user_id, session_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			session_id = excluded.session_id,
			updated_at = excluded.updated_at`,
		userID, id, time.Now().UnixMilli())
	if err != nil {
		log.Printf("[session] cache set active: %v", err)
	}
}

// History lists remembered sessions most-recent-first, bounded to 10.
func (c *SQLiteCache) History(userID string) []chat.Session {
	rows, err := c.db.Query(`
		SELECT session_id, title, created_at, last_used, message_count, agent_mode
		FROM sessions WHERE user_id = ?
		ORDER BY last_used DESC, session_id DESC LIMIT ?`,
		userID, historyLimit)
	if err != nil {
		log.Printf("[session] cache history: %v", err)
		return nil
	}
	defer rows.Close()

	var out []chat.Session
	for rows.Next() {
		var s chat.Session
		var createdAt, lastUsed int64
		var agentMode int
		if err := rows.Scan(&s.ID, &s.Title, &createdAt, &lastUsed, &s.MessageCount, &agentMode); err != nil {
			log.Printf("[session] cache history scan: %v", err)
			return out
		}
		s.UserID = userID
		s.CreatedAt = time.UnixMilli(createdAt).UTC()
		s.LastUsed = time.UnixMilli(lastUsed).UTC()
		s.AgentMode = agentMode != 0
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		log.Printf("[session] cache history rows: %v", err)
	}
	return out
}

// Remember upserts a session record and prunes the history beyond the
// bound. Merging never rewinds recency: a stale copy of a known id
// keeps the fresher last_used and message_count.
func (c *SQLiteCache) Remember(userID string, s chat.Session) {
	if s.LastUsed.IsZero() {
		s.LastUsed = time.Now().UTC()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.LastUsed
	}

	agentMode := 0
	if s.AgentMode {
		agentMode = 1
	}

	_, err := c.db.Exec(`
		INSERT INTO sessions (user_id, session_id, title, created_at, last_used, message_count, agent_mode)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, session_id) DO UPDATE SET
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE sessions.title END,
			last_used = MAX(excluded.last_used, sessions.last_used),
			message_count = MAX(excluded.message_count, sessions.message_count),
			agent_mode = excluded.agent_mode`,
		userID, s.ID, s.Title, s.CreatedAt.UnixMilli(), s.LastUsed.UnixMilli(), s.MessageCount, agentMode)
	if err != nil {
		log.Printf("[session] cache remember: %v", err)
		return
	}

	c.prune(userID)
}

// Forget drops the session record and clears the active pointer when
// it referenced id.
func (c *SQLiteCache) Forget(userID, id string) {
	if _, err := c.db.Exec(
		`DELETE FROM sessions WHERE user_id = ? AND session_id = ?`, userID, id); err != nil {
		log.Printf("[session] cache forget: %v", err)
	}
	if _, err := c.db.Exec(
		`DELETE FROM active_sessions WHERE user_id = ? AND session_id = ?`, userID, id); err != nil {
		log.Printf("[session] cache forget active: %v", err)
	}
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close cache database: %w", err)
	}
	return nil
}

func (c *SQLiteCache) prune(userID string) {
	_, err := c.db.Exec(`
		DELETE FROM sessions WHERE user_id = ? AND session_id NOT IN (
			SELECT session_id FROM sessions WHERE user_id = ?
			ORDER BY last_used DESC, session_id DESC LIMIT ?)`,
		userID, userID, historyLimit)
	if err != nil {
		log.Printf("[session] cache prune: %v", err)
	}
}
