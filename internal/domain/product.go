package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Product represents a product extracted from an article's content.
// Its lifecycle is tied to the owning article (cascade delete).
type Product struct {
	ID        string  `json:"id" db:"id"`
	ArticleID *string `json:"article_id,omitempty" db:"article_id"`
	Name      string  `json:"name" db:"name"`
	// Price is an arbitrary-precision decimal kept as a numeric string.
	// It is never converted through float64.
	Price      *string   `json:"price,omitempty" db:"price"`
	Currency   *string   `json:"currency,omitempty" db:"currency"`
	Attributes JSONBMap  `json:"attributes,omitempty" db:"attributes"`
	RawPayload string    `json:"raw_payload,omitempty" db:"raw_payload"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// JSONBMap maps a PostgreSQL JSONB column onto map[string]any.
// It implements sql.Scanner and driver.Valuer.
type JSONBMap map[string]any

// Scan implements the sql.Scanner interface.
func (j *JSONBMap) Scan(value any) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return errors.New("unsupported type for JSONBMap")
	}

	if len(data) == 0 {
		*j = JSONBMap{}
		return nil
	}

	return json.Unmarshal(data, j)
}

// Value implements the driver.Valuer interface.
func (j JSONBMap) Value() (driver.Value, error) {
	if len(j) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}
