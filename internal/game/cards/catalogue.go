package cards

import (
	"fmt"

	"github.com/hc-tcg/hc-tcg-server-go/internal/game/model"
)

// Card ids of the built-in catalogue.
const (
	EthoslabRareID      = "ethoslab_rare"
	GoodTimesWithScarID = "goodtimeswithscar_rare"
	PearlescentMoonID   = "pearlescentmoon_rare"
	XisumavoidRareID    = "xisumavoid_rare"
	TangoTekCommonID    = "tangotek_common"
	KeralisCommonID     = "keralis_common"

	WaterBucketID = "water_bucket"
	MilkBucketID  = "milk_bucket"
	TotemID       = "totem"

	ItemRedstoneID  = "item_redstone_common"
	ItemBuilderID   = "item_builder_common"
	ItemExplorerID  = "item_explorer_common"
	ItemFarmID      = "item_farm_common"
	ItemBalancedID  = "item_balanced_common"
	ItemTerraformID = "item_terraform_common"
)

func cost(elements ...model.Element) []model.Element {
	return elements
}

// BuiltinDefinitions returns the static records of the built-in catalogue in
// catalogue order.
func BuiltinDefinitions() []model.CardDefinition {
	return []model.CardDefinition{
		{
			ID: EthoslabRareID, Name: "Etho", Rarity: model.RarityRare, Category: model.CategoryHermit,
			HermitType: model.ElementRedstone, Health: 280,
			Primary: &model.AttackDefinition{Name: "Oh Snap", Cost: cost(model.ElementRedstone), Damage: 60},
			Secondary: &model.AttackDefinition{
				Name: "Blue Fire", Cost: cost(model.ElementRedstone, model.ElementRedstone), Damage: 80,
				Power: "Flip a coin. If heads, the opposing Hermit is now burned. Burn does an additional 20hp damage at the end of your turns until it is knocked out or cured.",
			},
		},
		{
			ID: GoodTimesWithScarID, Name: "Scar", Rarity: model.RarityRare, Category: model.CategoryHermit,
			HermitType: model.ElementBuilder, Health: 270,
			Primary: &model.AttackDefinition{Name: "Scarred For Life", Cost: cost(model.ElementBuilder), Damage: 50},
			Secondary: &model.AttackDefinition{
				Name: "Deathloop", Cost: cost(model.ElementBuilder, model.ElementAny), Damage: 70,
				Power: "If this Hermit is knocked out on your opponent's next turn, flip a coin. If heads, it is revived with 50hp. Each copy can only be revived once.",
			},
		},
		{
			ID: PearlescentMoonID, Name: "Pearl", Rarity: model.RarityRare, Category: model.CategoryHermit,
			HermitType: model.ElementTerraform, Health: 300,
			Primary: &model.AttackDefinition{Name: "Cleaning Lady", Cost: cost(model.ElementTerraform), Damage: 60},
			Secondary: &model.AttackDefinition{
				Name: "Aussie Ping", Cost: cost(model.ElementTerraform, model.ElementAny), Damage: 70,
				Power: "Opponent flips a coin on their next turn. If heads, their attack misses. Opponent can not miss on consecutive turns.",
			},
		},
		{
			ID: XisumavoidRareID, Name: "Xisuma", Rarity: model.RarityRare, Category: model.CategoryHermit,
			HermitType: model.ElementFarm, Health: 280,
			Primary: &model.AttackDefinition{Name: "Jumper Cable", Cost: cost(model.ElementFarm), Damage: 50},
			Secondary: &model.AttackDefinition{
				Name: "Goodness Me", Cost: cost(model.ElementFarm, model.ElementFarm, model.ElementAny), Damage: 80,
				Power: "The opposing Hermit is now poisoned. Poison does an additional 20hp damage at the end of your turns but cannot knock a Hermit out.",
			},
		},
		{
			ID: TangoTekCommonID, Name: "Tango", Rarity: model.RarityCommon, Category: model.CategoryHermit,
			HermitType: model.ElementRedstone, Health: 280,
			Primary:   &model.AttackDefinition{Name: "Skadoodle", Cost: cost(model.ElementRedstone), Damage: 40},
			Secondary: &model.AttackDefinition{Name: "Circuit Overload", Cost: cost(model.ElementRedstone, model.ElementRedstone), Damage: 80},
		},
		{
			ID: KeralisCommonID, Name: "Keralis", Rarity: model.RarityCommon, Category: model.CategoryHermit,
			HermitType: model.ElementBalanced, Health: 250,
			Primary:   &model.AttackDefinition{Name: "Booshes", Cost: cost(model.ElementAny), Damage: 50},
			Secondary: &model.AttackDefinition{Name: "Timber", Cost: cost(model.ElementBalanced, model.ElementAny), Damage: 90},
		},
		{
			ID: WaterBucketID, Name: "Water Bucket", Rarity: model.RarityCommon, Category: model.CategoryEffect,
			Description: "Cures burn on the Hermit it is attached to and prevents it from being burned while attached.",
		},
		{
			ID: MilkBucketID, Name: "Milk Bucket", Rarity: model.RarityCommon, Category: model.CategoryEffect,
			Description: "Cures poison on the Hermit it is attached to and prevents it from being poisoned while attached.",
		},
		{
			ID: TotemID, Name: "Totem", Rarity: model.RarityUltraRare, Category: model.CategoryEffect,
			Description: "If the Hermit this is attached to is knocked out, it is revived with 10hp. The totem is then discarded.",
		},
		{ID: ItemRedstoneID, Name: "Redstone", Rarity: model.RarityCommon, Category: model.CategoryItem, ItemType: model.ElementRedstone},
		{ID: ItemBuilderID, Name: "Builder", Rarity: model.RarityCommon, Category: model.CategoryItem, ItemType: model.ElementBuilder},
		{ID: ItemExplorerID, Name: "Explorer", Rarity: model.RarityCommon, Category: model.CategoryItem, ItemType: model.ElementExplorer},
		{ID: ItemFarmID, Name: "Farm", Rarity: model.RarityCommon, Category: model.CategoryItem, ItemType: model.ElementFarm},
		{ID: ItemBalancedID, Name: "Balanced", Rarity: model.RarityCommon, Category: model.CategoryItem, ItemType: model.ElementBalanced},
		{ID: ItemTerraformID, Name: "Terraform", Rarity: model.RarityCommon, Category: model.CategoryItem, ItemType: model.ElementTerraform},
	}
}

// BuiltinBehaviors maps card ids to the behaviors implemented in code.
func BuiltinBehaviors() map[string]Behavior {
	return map[string]Behavior{
		EthoslabRareID:      BehaviorFunc(registerEthoslab),
		GoodTimesWithScarID: BehaviorFunc(registerDeathloop),
		PearlescentMoonID:   BehaviorFunc(registerAussiePing),
		XisumavoidRareID:    BehaviorFunc(registerGoodnessMe),
		WaterBucketID:       curingBucket(WaterBucketID, model.AilmentBurn),
		MilkBucketID:        curingBucket(MilkBucketID, model.AilmentPoison),
		TotemID:             BehaviorFunc(registerTotem),
	}
}

// Builtin returns the built-in catalogue.
func Builtin() *Registry {
	reg, err := FromDefinitions(BuiltinDefinitions())
	if err != nil {
		panic(fmt.Sprintf("builtin catalogue: %v", err))
	}
	return reg
}

// FromDefinitions builds a catalogue from definitions, binding the built-in
// behavior of every id that has one. Definitions without a behavior are plain
// cards.
func FromDefinitions(defs []model.CardDefinition) (*Registry, error) {
	behaviors := BuiltinBehaviors()
	reg := NewRegistry()
	for _, def := range defs {
		if err := reg.Add(def, behaviors[def.ID]); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
