package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CardRepository stores card definitions. Only static stats live in the
// database; behaviors are bound in code by card id.
type CardRepository struct {
	pool *pgxpool.Pool
}

// NewCardRepository creates a repository over db.
func NewCardRepository(db *DB) *CardRepository {
	return &CardRepository{pool: db.pool}
}

// List returns every definition in catalogue order.
func (r *CardRepository) List(ctx context.Context) ([]model.CardDefinition, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, rarity, category, hermit_type, health,
		       primary_attack, secondary_attack, item_type, description
		FROM card_definitions
		ORDER BY position, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query card definitions: %w", err)
	}
	defer rows.Close()

	defs := make([]model.CardDefinition, 0)
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read card definitions: %w", err)
	}
	return defs, nil
}

// Count returns the number of stored definitions.
func (r *CardRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM card_definitions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count card definitions: %w", err)
	}
	return count, nil
}

// UpsertAll writes definitions in one transaction. Slice order becomes
// catalogue order.
func (r *CardRepository) UpsertAll(ctx context.Context, defs []model.CardDefinition) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, def := range defs {
		if err := def.Validate(); err != nil {
			return err
		}
		primary, err := encodeAttack(def.Primary)
		if err != nil {
			return err
		}
		secondary, err := encodeAttack(def.Secondary)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO card_definitions (
				id, position, name, rarity, category, hermit_type, health,
				primary_attack, secondary_attack, item_type, description
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				position = EXCLUDED.position,
				name = EXCLUDED.name,
				rarity = EXCLUDED.rarity,
				category = EXCLUDED.category,
				hermit_type = EXCLUDED.hermit_type,
				health = EXCLUDED.health,
				primary_attack = EXCLUDED.primary_attack,
				secondary_attack = EXCLUDED.secondary_attack,
				item_type = EXCLUDED.item_type,
				description = EXCLUDED.description,
				updated_at = NOW()
		`,
			def.ID, i, def.Name, string(def.Rarity), string(def.Category), string(def.HermitType), def.Health,
			primary, secondary, string(def.ItemType), def.Description,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for _, def := range defs {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to upsert card %s: %w", def.ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit card definitions: %w", err)
	}
	return nil
}

// DeleteAll removes every stored definition.
func (r *CardRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, "DELETE FROM card_definitions"); err != nil {
		return fmt.Errorf("failed to clear card definitions: %w", err)
	}
	return nil
}

func scanDefinition(row pgx.Row) (model.CardDefinition, error) {
	var (
		def                  model.CardDefinition
		rarity, category     string
		hermitType, itemType string
		primary, secondary   []byte
	)
	err := row.Scan(&def.ID, &def.Name, &rarity, &category, &hermitType, &def.Health,
		&primary, &secondary, &itemType, &def.Description)
	if err != nil {
		return def, fmt.Errorf("failed to scan card definition: %w", err)
	}
	def.Rarity = model.Rarity(rarity)
	def.Category = model.Category(category)
	def.HermitType = model.Element(hermitType)
	def.ItemType = model.Element(itemType)
	if def.Primary, err = decodeAttack(primary); err != nil {
		return def, fmt.Errorf("card %s: %w", def.ID, err)
	}
	if def.Secondary, err = decodeAttack(secondary); err != nil {
		return def, fmt.Errorf("card %s: %w", def.ID, err)
	}
	return def, nil
}

func encodeAttack(attack *model.AttackDefinition) ([]byte, error) {
	if attack == nil {
		return nil, nil
	}
	data, err := json.Marshal(attack)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attack %s: %w", attack.Name, err)
	}
	return data, nil
}

func decodeAttack(data []byte) (*model.AttackDefinition, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var attack model.AttackDefinition
	if err := json.Unmarshal(data, &attack); err != nil {
		return nil, fmt.Errorf("failed to decode attack: %w", err)
	}
	return &attack, nil
}
