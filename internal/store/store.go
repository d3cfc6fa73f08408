package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/examinaite/examinaite/internal/model"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		subject TEXT NOT NULL,
		level TEXT NOT NULL,
		difficulty TEXT NOT NULL DEFAULT 'random',
		topic TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_generations_subject ON generations(subject);

	CREATE TABLE IF NOT EXISTS generation_questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		generation_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		question TEXT NOT NULL,
		solution TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		UNIQUE (generation_id, position),
		FOREIGN KEY (generation_id) REFERENCES generations(id)
	);

	CREATE TABLE IF NOT EXISTS app_metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveGeneration stores a record with its questions in one transaction.
// An empty ID is replaced by a new UUID and a zero CreatedAt by the current
// time; the stored record is returned.
func (s *Store) SaveGeneration(rec model.GenerationRecord) (model.GenerationRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return rec, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO generations (id, title, subject, level, difficulty, topic, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Title, rec.Subject, rec.Level, rec.Difficulty, rec.Topic, rec.CreatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("insert generation: %w", err)
	}

	for i, q := range rec.Questions {
		meta, err := json.Marshal(q.Metadata)
		if err != nil {
			return rec, fmt.Errorf("encode metadata for question %d: %w", i+1, err)
		}
		_, err = tx.Exec(
			`INSERT INTO generation_questions (generation_id, position, question, solution, metadata)
			 VALUES (?, ?, ?, ?, ?)`,
			rec.ID, i+1, q.Question, q.Solution, string(meta),
		)
		if err != nil {
			return rec, fmt.Errorf("insert question %d: %w", i+1, err)
		}
	}

	return rec, tx.Commit()
}

// GetGeneration returns a record with its questions. It returns
// sql.ErrNoRows if the ID is unknown.
func (s *Store) GetGeneration(id string) (model.GenerationRecord, error) {
	var rec model.GenerationRecord
	err := s.db.QueryRow(
		`SELECT id, title, subject, level, difficulty, topic, created_at FROM generations WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.Title, &rec.Subject, &rec.Level, &rec.Difficulty, &rec.Topic, &rec.CreatedAt)
	if err != nil {
		return rec, err
	}
	rec.Questions, err = s.getQuestions(id)
	return rec, err
}

// ListGenerations returns stored records, newest first. An empty subject
// means no filtering.
func (s *Store) ListGenerations(subject string) ([]model.GenerationRecord, error) {
	query := `SELECT id, title, subject, level, difficulty, topic, created_at FROM generations`
	var args []any
	if subject != "" {
		query += ` WHERE subject = ?`
		args = append(args, subject)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var records []model.GenerationRecord
	for rows.Next() {
		var rec model.GenerationRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Subject, &rec.Level, &rec.Difficulty, &rec.Topic, &rec.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range records {
		if records[i].Questions, err = s.getQuestions(records[i].ID); err != nil {
			return nil, fmt.Errorf("questions of %s: %w", records[i].ID, err)
		}
	}
	return records, nil
}

// DeleteGeneration removes a record and its questions. It returns
// sql.ErrNoRows if the ID is unknown.
func (s *Store) DeleteGeneration(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM generation_questions WHERE generation_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM generations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return tx.Commit()
}

// GenerationCount returns the number of stored generations.
func (s *Store) GenerationCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM generations`).Scan(&count)
	return count, err
}

func (s *Store) getQuestions(generationID string) ([]model.StoredQuestion, error) {
	rows, err := s.db.Query(
		`SELECT question, solution, metadata FROM generation_questions WHERE generation_id = ? ORDER BY position`,
		generationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.StoredQuestion{}
	for rows.Next() {
		var (
			q    model.StoredQuestion
			meta string
		)
		if err := rows.Scan(&q.Question, &q.Solution, &meta); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &q.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
