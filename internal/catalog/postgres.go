package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool / pgx.Conn used to read cards.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectCardsSQL = `
SELECT id, name, category, cost, text, details, target, rarity
FROM cards
ORDER BY category, id`

// LoadPostgres reads the cards table populated by scripts/import_cards.go.
func LoadPostgres(ctx context.Context, db Querier) ([]Card, error) {
	rows, err := db.Query(ctx, selectCardsSQL)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []Card
	for rows.Next() {
		var (
			card     Card
			category string
			details  []string
		)
		if err := rows.Scan(&card.ID, &card.Name, &category, &card.Cost, &card.Text, &details, &card.Target, &card.Rarity); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		card.Category = Category(category)
		card.Details = details
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}
