package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
)

// ErrNotFound is returned when a card id is not in the catalog.
var ErrNotFound = fmt.Errorf("catalog: card not found")

// Store wraps the catalog database and provides card access.
type Store struct {
	conn *sql.DB
}

// NewStore opens the catalog database and initializes the schema.
func NewStore(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{conn: conn}

	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// initSchema creates the necessary tables if they don't exist.
func (s *Store) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			bank TEXT NOT NULL,
			style TEXT NOT NULL DEFAULT '',
			reward_type TEXT NOT NULL DEFAULT 'cash',
			foreign_currency_fee REAL,
			image_url TEXT NOT NULL DEFAULT '',
			apply_url TEXT NOT NULL DEFAULT '',
			rules TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_bank ON cards(bank)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// UpsertCard creates or updates a card. Rules are stored as a JSON
// column; the catalog is small and always read whole, so there is no
// value in normalizing clauses into their own table.
func (s *Store) UpsertCard(card models.Card) error {
	rulesJSON, err := json.Marshal(card.Rules)
	if err != nil {
		return fmt.Errorf("failed to serialize rules: %w", err)
	}

	query := `INSERT INTO cards (
		id, name, bank, style, reward_type, foreign_currency_fee,
		image_url, apply_url, rules, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		bank = excluded.bank,
		style = excluded.style,
		reward_type = excluded.reward_type,
		foreign_currency_fee = excluded.foreign_currency_fee,
		image_url = excluded.image_url,
		apply_url = excluded.apply_url,
		rules = excluded.rules,
		updated_at = excluded.updated_at`

	rewardType := card.RewardType
	if rewardType == "" {
		rewardType = models.RewardCash
	}

	var fee interface{}
	if card.ForeignCurrencyFee != nil {
		fee = *card.ForeignCurrencyFee
	}

	_, err = s.conn.Exec(
		query,
		card.ID,
		card.Name,
		card.Bank,
		card.Style,
		string(rewardType),
		fee,
		card.ImageURL,
		card.ApplyURL,
		string(rulesJSON),
		time.Now().UTC().Format(time.RFC3339),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert card: %w", err)
	}

	return nil
}

const cardColumns = `id, name, bank, style, reward_type, foreign_currency_fee,
	image_url, apply_url, rules`

// GetCard returns one card by id, or ErrNotFound.
func (s *Store) GetCard(id string) (models.Card, error) {
	row := s.conn.QueryRow(`SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)

	card, err := scanCard(row)
	if err == sql.ErrNoRows {
		return models.Card{}, ErrNotFound
	}
	if err != nil {
		return models.Card{}, fmt.Errorf("failed to get card: %w", err)
	}
	return card, nil
}

// ListCards returns the full catalog in insertion order; the engine
// relies on that order for deterministic tie-breaking. Upserts keep a
// card's rowid, so updating a card does not move it.
func (s *Store) ListCards() ([]models.Card, error) {
	rows, err := s.conn.Query(`SELECT ` + cardColumns + ` FROM cards ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query cards: %w", err)
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card: %w", err)
		}
		cards = append(cards, card)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cards: %w", err)
	}

	return cards, nil
}

// DeleteCard removes a card, returning ErrNotFound when the id does
// not exist.
func (s *Store) DeleteCard(id string) error {
	res, err := s.conn.Exec(`DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCard(row scanner) (models.Card, error) {
	var card models.Card
	var rewardType string
	var fee sql.NullFloat64
	var rulesJSON string

	err := row.Scan(
		&card.ID,
		&card.Name,
		&card.Bank,
		&card.Style,
		&rewardType,
		&fee,
		&card.ImageURL,
		&card.ApplyURL,
		&rulesJSON,
	)
	if err != nil {
		return models.Card{}, err
	}

	card.RewardType = models.RewardType(rewardType)
	if fee.Valid {
		f := fee.Float64
		card.ForeignCurrencyFee = &f
	}

	if err := json.Unmarshal([]byte(rulesJSON), &card.Rules); err != nil {
		return models.Card{}, fmt.Errorf("failed to parse rules for card %s: %w", card.ID, err)
	}

	return card, nil
}
