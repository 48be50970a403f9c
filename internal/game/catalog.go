package game

// ItemCategory groups item kinds by how they behave.
type ItemCategory uint8

const (
	CatNone ItemCategory = iota
	CatMoney
	CatPotion
	CatMelee
	CatRanged
	CatArmour
	CatBuilding
)

// ItemKind is the closed set of items.
type ItemKind uint8

const (
	ItemNone ItemKind = iota
	ItemMoney

	ItemHPPotion
	ItemManaPotion
	ItemMaxHPPotion
	ItemMaxManaPotion
	ItemDamagePotion
	ItemSpeedPotion
	ItemJumpPotion

	ItemStoneSword
	ItemIronSword
	ItemGoldSword
	ItemStoneAxe
	ItemIronAxe
	ItemGoldAxe

	ItemSlingshot
	ItemWoodBow
	ItemSteelBow
	ItemMegaBow
	ItemFireWand
	ItemIceWand
	ItemDarkWand

	ItemSteelArmour
	ItemBlueArmour
	ItemRedArmour
	ItemGreyArmour

	ItemBarracks
	ItemWoodHouse
	ItemInn
	ItemTower
	ItemGoldMine

	itemKindCount
)

// PotionEffect is what drinking a potion changes.
type PotionEffect uint8

const (
	PotionNone PotionEffect = iota
	PotionHeal
	PotionMana
	PotionMaxHP
	PotionMaxMana
	PotionDamage
	PotionSpeed
	PotionJump
)

// Potion amounts.
const (
	HealAmount      = 25
	ManaAmount      = 30
	MaxHPIncrease   = 10
	MaxManaIncrease = 10
	DamageIncrease  = 5
	SpeedIncrease   = 1
	JumpIncrease    = 1
)

// ItemSpec is the stat payload of an item kind.
type ItemSpec struct {
	Code       string         `json:"code"`
	Name       string         `json:"name"`
	Category   ItemCategory   `json:"category"`
	Cost       int            `json:"cost"`
	Image      int            `json:"image"`
	Stackable  bool           `json:"stackable"`
	Damage     int            `json:"damage,omitempty"`
	Delay      int            `json:"delay,omitempty"` // action length in ticks
	Mana       int            `json:"mana,omitempty"`
	Projectile ProjectileKind `json:"-"`
	Armour     float64        `json:"armour,omitempty"`
	Potion     PotionEffect   `json:"-"`
	Building   BuildingKind   `json:"-"`
}

var itemSpecs = [itemKindCount]ItemSpec{
	ItemMoney: {Code: "MON", Name: "Gold Coin", Category: CatMoney, Cost: 1, Image: 1, Stackable: true},

	ItemHPPotion:      {Code: "PHP", Name: "Health Potion", Category: CatPotion, Cost: 3, Image: 2, Stackable: true, Potion: PotionHeal},
	ItemManaPotion:    {Code: "PMP", Name: "Mana Potion", Category: CatPotion, Cost: 3, Image: 3, Stackable: true, Potion: PotionMana},
	ItemMaxHPPotion:   {Code: "PMH", Name: "Max HP Potion", Category: CatPotion, Cost: 10, Image: 4, Stackable: true, Potion: PotionMaxHP},
	ItemMaxManaPotion: {Code: "PMM", Name: "Max Mana Potion", Category: CatPotion, Cost: 10, Image: 5, Stackable: true, Potion: PotionMaxMana},
	ItemDamagePotion:  {Code: "PDM", Name: "Strength Potion", Category: CatPotion, Cost: 15, Image: 6, Stackable: true, Potion: PotionDamage},
	ItemSpeedPotion:   {Code: "PSP", Name: "Speed Potion", Category: CatPotion, Cost: 15, Image: 7, Stackable: true, Potion: PotionSpeed},
	ItemJumpPotion:    {Code: "PJP", Name: "Jump Potion", Category: CatPotion, Cost: 15, Image: 8, Stackable: true, Potion: PotionJump},

	ItemStoneSword: {Code: "WSS", Name: "Stone Sword", Category: CatMelee, Cost: 5, Image: 10, Damage: 10, Delay: 20},
	ItemIronSword:  {Code: "WSI", Name: "Iron Sword", Category: CatMelee, Cost: 15, Image: 11, Damage: 16, Delay: 20},
	ItemGoldSword:  {Code: "WSG", Name: "Gold Sword", Category: CatMelee, Cost: 35, Image: 12, Damage: 24, Delay: 20},
	ItemStoneAxe:   {Code: "WAS", Name: "Stone Axe", Category: CatMelee, Cost: 6, Image: 13, Damage: 12, Delay: 25},
	ItemIronAxe:    {Code: "WAI", Name: "Iron Axe", Category: CatMelee, Cost: 18, Image: 14, Damage: 19, Delay: 25},
	ItemGoldAxe:    {Code: "WAG", Name: "Gold Axe", Category: CatMelee, Cost: 40, Image: 15, Damage: 28, Delay: 25},

	ItemSlingshot: {Code: "RSL", Name: "Slingshot", Category: CatRanged, Cost: 4, Image: 20, Delay: 16, Projectile: ProjBullet},
	ItemWoodBow:   {Code: "RWB", Name: "Wood Bow", Category: CatRanged, Cost: 10, Image: 21, Delay: 16, Projectile: ProjWoodArrow},
	ItemSteelBow:  {Code: "RSB", Name: "Steel Bow", Category: CatRanged, Cost: 25, Image: 22, Delay: 16, Projectile: ProjSteelArrow},
	ItemMegaBow:   {Code: "RMB", Name: "Mega Bow", Category: CatRanged, Cost: 50, Image: 23, Delay: 25, Projectile: ProjMegaArrow},
	ItemFireWand:  {Code: "RFW", Name: "Fire Wand", Category: CatRanged, Cost: 30, Image: 24, Delay: 25, Mana: 10, Projectile: ProjFireball},
	ItemIceWand:   {Code: "RIW", Name: "Ice Wand", Category: CatRanged, Cost: 30, Image: 25, Delay: 30, Mana: 8, Projectile: ProjIceball},
	ItemDarkWand:  {Code: "RDW", Name: "Dark Wand", Category: CatRanged, Cost: 60, Image: 26, Delay: 30, Mana: 20, Projectile: ProjDarkball},

	ItemSteelArmour: {Code: "AST", Name: "Steel Armour", Category: CatArmour, Cost: 15, Image: 30, Armour: 0.10},
	ItemBlueArmour:  {Code: "ABL", Name: "Blue Armour", Category: CatArmour, Cost: 30, Image: 31, Armour: 0.20},
	ItemRedArmour:   {Code: "ARD", Name: "Red Armour", Category: CatArmour, Cost: 50, Image: 32, Armour: 0.30},
	ItemGreyArmour:  {Code: "AGR", Name: "Grey Armour", Category: CatArmour, Cost: 80, Image: 33, Armour: 0.40},

	ItemBarracks:  {Code: "KBK", Name: "Barracks", Category: CatBuilding, Cost: 10, Image: 40, Building: BuildingBarracks},
	ItemWoodHouse: {Code: "KWH", Name: "Wood House", Category: CatBuilding, Cost: 5, Image: 41, Building: BuildingWoodHouse},
	ItemInn:       {Code: "KIN", Name: "Inn", Category: CatBuilding, Cost: 12, Image: 42, Building: BuildingInn},
	ItemTower:     {Code: "KTW", Name: "Arrow Tower", Category: CatBuilding, Cost: 15, Image: 43, Building: BuildingTower},
	ItemGoldMine:  {Code: "KGM", Name: "Gold Mine", Category: CatBuilding, Cost: 20, Image: 44, Building: BuildingGoldMine},
}

var itemByCode = func() map[string]ItemKind {
	m := make(map[string]ItemKind, itemKindCount)
	for k := ItemKind(1); k < itemKindCount; k++ {
		m[itemSpecs[k].Code] = k
	}
	return m
}()

// Spec returns the stat payload of the item kind.
func (k ItemKind) Spec() ItemSpec {
	if k >= itemKindCount {
		return ItemSpec{}
	}
	return itemSpecs[k]
}

// Valid reports whether k names a real item.
func (k ItemKind) Valid() bool { return k > ItemNone && k < itemKindCount }

func (k ItemKind) String() string { return k.Spec().Code }

// Weapon reports whether the item can sit in a weapon slot.
func (k ItemKind) Weapon() bool {
	c := k.Spec().Category
	return c == CatMelee || c == CatRanged || c == CatBuilding
}

// ItemByCode resolves a wire code.
func ItemByCode(code string) (ItemKind, bool) {
	k, ok := itemByCode[code]
	return k, ok
}

// SalePrice is what a vendor pays for an item.
func (k ItemKind) SalePrice() int {
	return (k.Spec().Cost + 1) / 2
}

// ProjectileKind is the closed set of projectiles.
type ProjectileKind uint8

const (
	ProjNone ProjectileKind = iota
	ProjBullet
	ProjWoodArrow
	ProjSteelArrow
	ProjMegaArrow
	ProjFireball
	ProjIceball
	ProjDarkball

	projKindCount
)

// ProjectileSpec is the stat payload of a projectile kind.
type ProjectileSpec struct {
	Code    string
	Damage  int
	Speed   float64
	Gravity float64
	Size    float64
	Life    int // ticks before it expires in flight
	Image   int
}

var projSpecs = [projKindCount]ProjectileSpec{
	ProjBullet:     {Code: "JBL", Damage: 5, Speed: 16, Gravity: 0.3, Size: 8, Life: 120, Image: 50},
	ProjWoodArrow:  {Code: "JWA", Damage: 8, Speed: 20, Gravity: 0.25, Size: 10, Life: 150, Image: 51},
	ProjSteelArrow: {Code: "JSA", Damage: 12, Speed: 22, Gravity: 0.25, Size: 10, Life: 150, Image: 52},
	ProjMegaArrow:  {Code: "JMA", Damage: 20, Speed: 24, Gravity: 0.2, Size: 12, Life: 150, Image: 53},
	ProjFireball:   {Code: "JFB", Damage: 20, Speed: 12, Size: 20, Life: 90, Image: 54},
	ProjIceball:    {Code: "JIB", Damage: 15, Speed: 12, Size: 20, Life: 90, Image: 55},
	ProjDarkball:   {Code: "JDB", Damage: 30, Speed: 10, Size: 24, Life: 90, Image: 56},
}

// Spec returns the stat payload of the projectile kind.
func (k ProjectileKind) Spec() ProjectileSpec {
	if k >= projKindCount {
		return ProjectileSpec{}
	}
	return projSpecs[k]
}

// UnitKind is the closed set of AI-controlled units.
type UnitKind uint8

const (
	UnitGoblin UnitKind = iota
	UnitGuard
	UnitLord
	UnitKnight
	UnitGeneral
	UnitKing
	UnitNinja
	UnitSamurai

	unitKindCount
)

// RandomUnitKinds is the number of kinds the spawn director may draw at
// random; mercenaries come after them.
const RandomUnitKinds = int(UnitKing) + 1

// UnitSpec is the stat payload of a unit kind.
type UnitSpec struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	HP       int     `json:"hp"`
	Damage   int     `json:"damage"`
	Speed    float64 `json:"speed"`
	Jump     float64 `json:"jump"`
	Housing  int     `json:"housing"`
	W, H     float64 `json:"-"`
	Range    float64 `json:"range"` // target acquisition range
	Cooldown int     `json:"cooldown"`
	Image    int     `json:"image"`
}

var unitSpecs = [unitKindCount]UnitSpec{
	UnitGoblin:  {Code: "GOB", Name: "Goblin", HP: 60, Damage: 5, Speed: 2, Jump: 12, Housing: 1, W: 30, H: 60, Range: 600, Cooldown: 40, Image: 1000},
	UnitGuard:   {Code: "GRD", Name: "Goblin Guard", HP: 100, Damage: 8, Speed: 2, Jump: 12, Housing: 1, W: 32, H: 70, Range: 600, Cooldown: 40, Image: 1030},
	UnitLord:    {Code: "LRD", Name: "Goblin Lord", HP: 150, Damage: 10, Speed: 2, Jump: 12, Housing: 2, W: 34, H: 80, Range: 650, Cooldown: 40, Image: 1060},
	UnitKnight:  {Code: "KNT", Name: "Goblin Knight", HP: 180, Damage: 12, Speed: 2.5, Jump: 12, Housing: 2, W: 36, H: 84, Range: 650, Cooldown: 35, Image: 1090},
	UnitGeneral: {Code: "GEN", Name: "Goblin General", HP: 260, Damage: 16, Speed: 2.5, Jump: 14, Housing: 3, W: 40, H: 90, Range: 700, Cooldown: 35, Image: 1120},
	UnitKing:    {Code: "KNG", Name: "Goblin King", HP: 350, Damage: 22, Speed: 2, Jump: 14, Housing: 3, W: 48, H: 100, Range: 750, Cooldown: 45, Image: 1150},
	UnitNinja:   {Code: "NIN", Name: "Ninja", HP: 150, Damage: 14, Speed: 4, Jump: 18, Housing: 2, W: 34, H: 84, Range: 700, Cooldown: 25, Image: 1180},
	UnitSamurai: {Code: "SAM", Name: "Samurai", HP: 200, Damage: 18, Speed: 3, Jump: 14, Housing: 2, W: 36, H: 88, Range: 700, Cooldown: 30, Image: 1210},
}

// Spec returns the stat payload of the unit kind.
func (k UnitKind) Spec() UnitSpec {
	if k >= unitKindCount {
		return UnitSpec{}
	}
	return unitSpecs[k]
}

func (k UnitKind) String() string { return k.Spec().Name }

// BuildingKind is the closed set of buildings.
type BuildingKind uint8

const (
	BuildingNone BuildingKind = iota
	BuildingCastle
	BuildingBarracks
	BuildingWoodHouse
	BuildingInn
	BuildingTower
	BuildingGoldMine

	buildingKindCount
)

// BuildingSpec is the stat payload of a building kind.
type BuildingSpec struct {
	Code        string
	Name        string
	HP          int
	W, H        float64
	Image       int
	PopBonus    int        // population limit added while standing
	Units       []UnitKind // spawned every spawn window
	TurretRange float64    // 0 means no turret
	Income      bool       // gold mine
}

var buildingSpecs = [buildingKindCount]BuildingSpec{
	BuildingCastle:    {Code: "BCA", Name: "Castle", HP: 10000, W: 840, H: 300, Image: 200, TurretRange: 1000},
	BuildingBarracks:  {Code: "BBK", Name: "Barracks", HP: 1500, W: 192, H: 128, Image: 201, Units: []UnitKind{UnitGoblin, UnitGoblin, UnitGuard}},
	BuildingWoodHouse: {Code: "BWH", Name: "Wood House", HP: 800, W: 128, H: 96, Image: 202, PopBonus: 10},
	BuildingInn:       {Code: "BIN", Name: "Inn", HP: 1200, W: 192, H: 128, Image: 203, PopBonus: 25},
	BuildingTower:     {Code: "BTW", Name: "Arrow Tower", HP: 1200, W: 64, H: 192, Image: 204, TurretRange: 600},
	BuildingGoldMine:  {Code: "BGM", Name: "Gold Mine", HP: 1000, W: 128, H: 96, Image: 205, Income: true},
}

// Spec returns the stat payload of the building kind.
func (k BuildingKind) Spec() BuildingSpec {
	if k >= buildingKindCount {
		return BuildingSpec{}
	}
	return buildingSpecs[k]
}

func (k BuildingKind) String() string { return k.Spec().Name }
