// Package memory is a topic/fact store backed by sqlite, with embedding-based
// topic search. It implements the planner's MemoryService collaborator.
package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "github.com/glebarez/go-sqlite"
	"github.com/rahul/yojana/planner"
	"github.com/tmc/langchaingo/embeddings"
)

type Service struct {
	DB       *sql.DB
	Embedder embeddings.Embedder
}

func NewService(dbPath string, embedder embeddings.Embedder) (*Service, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// Create tables if not exist
	queries := []string{
		`CREATE TABLE IF NOT EXISTS topics (
			topic_name TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			keywords TEXT,
			embedding TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_mentioned DATETIME DEFAULT CURRENT_TIMESTAMP,
			message_count INTEGER DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS topic_facts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			topic_name TEXT NOT NULL,
			fact_type TEXT,
			fact TEXT NOT NULL,
			locked BOOLEAN DEFAULT FALSE,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &Service{DB: db, Embedder: embedder}, nil
}

// AddTopic registers a topic, embedding its description for later search.
// Re-adding an existing topic refreshes its description and embedding.
func (s *Service) AddTopic(ctx context.Context, name, description string, keywords []string) error {
	if s.Embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	embedding, err := s.Embedder.EmbedQuery(ctx, description)
	if err != nil {
		return fmt.Errorf("embedding topic description: %w", err)
	}

	embJSON, err := json.Marshal(embedding)
	if err != nil {
		return err
	}
	kwJSON, err := json.Marshal(keywords)
	if err != nil {
		return err
	}

	query := `INSERT OR REPLACE INTO topics (topic_name, description, keywords, embedding) VALUES (?, ?, ?, ?)`
	_, err = s.DB.ExecContext(ctx, query, name, description, string(kwJSON), string(embJSON))
	return err
}

// SearchTopics ranks every embedded topic by cosine similarity to the query
// embedding, highest first.
func (s *Service) SearchTopics(ctx context.Context, embedding []float32) ([]planner.TopicMatch, error) {
	query := `SELECT topic_name, description, embedding FROM topics WHERE embedding IS NOT NULL`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []planner.TopicMatch
	for rows.Next() {
		var name, description, embJSON string
		if err := rows.Scan(&name, &description, &embJSON); err != nil {
			return nil, err
		}

		var topicEmb []float32
		if err := json.Unmarshal([]byte(embJSON), &topicEmb); err != nil {
			continue
		}

		matches = append(matches, planner.TopicMatch{
			Name:        name,
			Similarity:  cosineSimilarity(embedding, topicEmb),
			Description: description,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches, nil
}

// GetFacts returns all facts recorded under a topic, newest first.
func (s *Service) GetFacts(ctx context.Context, topic string) ([]planner.Fact, error) {
	query := `SELECT fact_type, fact, locked FROM topic_facts WHERE topic_name = ? ORDER BY created_at DESC, id DESC`
	rows, err := s.DB.QueryContext(ctx, query, topic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []planner.Fact
	for rows.Next() {
		var f planner.Fact
		if err := rows.Scan(&f.Type, &f.Content, &f.Locked); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// SaveFact records a classified fact about a topic.
func (s *Service) SaveFact(ctx context.Context, topic, factType, fact string) error {
	query := `INSERT INTO topic_facts (topic_name, fact_type, fact) VALUES (?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, query, topic, factType, fact)
	return err
}

// TouchTopic bumps a topic's last-mentioned time and message count.
func (s *Service) TouchTopic(ctx context.Context, topic string) error {
	query := `UPDATE topics SET last_mentioned = datetime('now'), message_count = message_count + 1 WHERE topic_name = ?`
	_, err := s.DB.ExecContext(ctx, query, topic)
	return err
}

func (s *Service) Close() error {
	return s.DB.Close()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
