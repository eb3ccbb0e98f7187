package model

import (
	"fmt"
	"strings"
)

// Category is the broad card type; it decides which board slot a card occupies.
type Category string

const (
	CategoryHermit Category = "hermit"
	CategoryItem   Category = "item"
	CategoryEffect Category = "effect"
)

// Element is a hermit type. Attack costs are lists of elements; ElementAny
// can be paid with an item of any element.
type Element string

const (
	ElementAny         Element = "any"
	ElementBalanced    Element = "balanced"
	ElementBuilder     Element = "builder"
	ElementExplorer    Element = "explorer"
	ElementFarm        Element = "farm"
	ElementMiner       Element = "miner"
	ElementPrankster   Element = "prankster"
	ElementPvP         Element = "pvp"
	ElementRedstone    Element = "redstone"
	ElementSpeedrunner Element = "speedrunner"
	ElementTerraform   Element = "terraform"
)

// Rarity of a card definition.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityUltraRare Rarity = "ultra_rare"
)

// AttackType selects which of a hermit's two attacks is used.
type AttackType string

const (
	AttackPrimary   AttackType = "primary"
	AttackSecondary AttackType = "secondary"
)

// ParseAttackType validates an attack type string.
func ParseAttackType(value string) (AttackType, error) {
	switch AttackType(strings.ToLower(strings.TrimSpace(value))) {
	case AttackPrimary:
		return AttackPrimary, nil
	case AttackSecondary:
		return AttackSecondary, nil
	default:
		return "", fmt.Errorf("unknown attack type %q", value)
	}
}

// AttackDefinition is one of a hermit's attacks. Power is display text only.
type AttackDefinition struct {
	Name   string    `json:"name"`
	Cost   []Element `json:"cost"`
	Damage int       `json:"damage"`
	Power  string    `json:"power,omitempty"`
}

// CardDefinition is the static record of a card. Behavior is attached separately
// through the card registry.
type CardDefinition struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Rarity     Rarity            `json:"rarity"`
	Category   Category          `json:"category"`
	HermitType Element           `json:"hermitType,omitempty"`
	Health     int               `json:"health,omitempty"`
	Primary    *AttackDefinition `json:"primary,omitempty"`
	Secondary  *AttackDefinition `json:"secondary,omitempty"`
	// ItemType is the energy an item card provides.
	ItemType Element `json:"itemType,omitempty"`
	// Description is the rules text of item and effect cards.
	Description string `json:"description,omitempty"`
}

// Attack returns the attack definition for the given attack type.
func (d *CardDefinition) Attack(attackType AttackType) *AttackDefinition {
	if d == nil {
		return nil
	}
	switch attackType {
	case AttackPrimary:
		return d.Primary
	case AttackSecondary:
		return d.Secondary
	default:
		return nil
	}
}

// Validate checks the fields a definition of its category must carry.
func (d *CardDefinition) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("card definition: id is required")
	}
	switch d.Category {
	case CategoryHermit:
		if d.Health <= 0 {
			return fmt.Errorf("card %s: hermit health must be positive", d.ID)
		}
		if d.Primary == nil {
			return fmt.Errorf("card %s: hermit needs a primary attack", d.ID)
		}
		for _, attack := range []*AttackDefinition{d.Primary, d.Secondary} {
			if attack != nil && attack.Damage < 0 {
				return fmt.Errorf("card %s: attack %s has negative damage", d.ID, attack.Name)
			}
		}
	case CategoryItem:
		if d.ItemType == "" {
			return fmt.Errorf("card %s: item needs an item type", d.ID)
		}
	case CategoryEffect:
	default:
		return fmt.Errorf("card %s: unknown category %q", d.ID, d.Category)
	}
	return nil
}

// CardInstance is a concrete copy of a definition. Instance is unique within a
// match and stable from hand to board to discard and back.
type CardInstance struct {
	CardID   string   `json:"cardId"`
	Instance string   `json:"cardInstance"`
	Category Category `json:"category"`
}
