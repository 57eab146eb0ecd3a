package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quantum-ratchet/common"

	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initDB(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		first_id TEXT NOT NULL,
		second_id TEXT NOT NULL,
		sender TEXT NOT NULL,
		recipient TEXT NOT NULL,
		message TEXT NOT NULL,
		beacon TEXT,
		timestamp INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversation ON messages(first_id, second_id, seq);
	CREATE INDEX IF NOT EXISTS idx_beacon ON messages(beacon);
	`
	_, err := db.Exec(query)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, msg common.Message) error {
	first, second := conversationKey(msg.Sender, msg.Recipient)
	var beacon sql.NullString
	if msg.Beacon != "" {
		beacon = sql.NullString{String: msg.Beacon, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, first_id, second_id, sender, recipient, message, beacon, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, first, second, msg.Sender, msg.Recipient, msg.Message, beacon, msg.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to store message from %s to %s: %w", msg.Sender, msg.Recipient, err)
	}
	return nil
}

func (s *SQLiteStore) Conversation(ctx context.Context, a, b string) ([]common.Message, error) {
	first, second := conversationKey(a, b)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sender, recipient, message, beacon, timestamp FROM messages
		WHERE first_id = ? AND second_id = ? ORDER BY seq`, first, second)
	if err != nil {
		return nil, fmt.Errorf("failed to read history of %s and %s: %w", a, b, err)
	}
	defer rows.Close()

	msgs := []common.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

func (s *SQLiteStore) FindByBeacon(ctx context.Context, beacon string) (common.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, sender, recipient, message, beacon, timestamp FROM messages
		WHERE beacon = ? ORDER BY seq DESC LIMIT 1`, beacon)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Message{}, ErrNotFound
	}
	return msg, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (common.Message, error) {
	var msg common.Message
	var beacon sql.NullString
	if err := row.Scan(&msg.ID, &msg.Sender, &msg.Recipient, &msg.Message, &beacon, &msg.Timestamp); err != nil {
		return common.Message{}, err
	}
	msg.Beacon = beacon.String
	return msg, nil
}
