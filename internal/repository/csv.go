package repository

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
)

// CSVColumns is the header the card importer expects. Columns may appear in
// any order; missing optional columns read as empty.
var CSVColumns = []string{
	"id", "name", "rarity", "category", "hermit_type", "health",
	"primary_name", "primary_cost", "primary_damage", "primary_power",
	"secondary_name", "secondary_cost", "secondary_damage", "secondary_power",
	"item_type", "description",
}

var requiredColumns = []string{"id", "name", "category"}

// ParseCardsCSV reads card definitions from CSV. The first record is the
// header. Attack costs are element lists separated by "|".
func ParseCardsCSV(r io.Reader) ([]model.CardDefinition, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("csv header is missing column %q", name)
		}
	}

	var defs []model.CardDefinition
	seen := make(map[string]bool)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i, ok := columns[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if field("id") == "" {
			continue
		}

		def, err := definitionFromFields(field)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if seen[def.ID] {
			return nil, fmt.Errorf("line %d: duplicate card id %s", line, def.ID)
		}
		seen[def.ID] = true
		defs = append(defs, def)
	}
	return defs, nil
}

func definitionFromFields(field func(string) string) (model.CardDefinition, error) {
	def := model.CardDefinition{
		ID:          field("id"),
		Name:        field("name"),
		Rarity:      model.Rarity(strings.ToLower(field("rarity"))),
		Category:    model.Category(strings.ToLower(field("category"))),
		HermitType:  model.Element(strings.ToLower(field("hermit_type"))),
		ItemType:    model.Element(strings.ToLower(field("item_type"))),
		Description: field("description"),
	}
	if def.Rarity == "" {
		def.Rarity = model.RarityCommon
	}

	var err error
	if def.Health, err = atoiOrZero(field("health")); err != nil {
		return def, fmt.Errorf("card %s: health: %w", def.ID, err)
	}
	if def.Primary, err = attackFromFields(field, "primary"); err != nil {
		return def, fmt.Errorf("card %s: %w", def.ID, err)
	}
	if def.Secondary, err = attackFromFields(field, "secondary"); err != nil {
		return def, fmt.Errorf("card %s: %w", def.ID, err)
	}
	if err := def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}

func attackFromFields(field func(string) string, prefix string) (*model.AttackDefinition, error) {
	name := field(prefix + "_name")
	if name == "" {
		return nil, nil
	}
	damage, err := atoiOrZero(field(prefix + "_damage"))
	if err != nil {
		return nil, fmt.Errorf("%s damage: %w", prefix, err)
	}
	return &model.AttackDefinition{
		Name:   name,
		Cost:   parseCost(field(prefix + "_cost")),
		Damage: damage,
		Power:  field(prefix + "_power"),
	}, nil
}

func parseCost(value string) []model.Element {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, "|")
	cost := make([]model.Element, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			cost = append(cost, model.Element(part))
		}
	}
	return cost
}

func atoiOrZero(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}
