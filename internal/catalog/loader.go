package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embeddedData embed.FS

// itemDefinition is an item as written in YAML, keyed by id under its category.
type itemDefinition struct {
	Name       string `yaml:"name"`
	Emoji      string `yaml:"emoji"`
	Rarity     Rarity `yaml:"rarity"`
	Hunger     int    `yaml:"hunger,omitempty"`
	Thirst     int    `yaml:"thirst,omitempty"`
	Health     int    `yaml:"health,omitempty"`
	Energy     int    `yaml:"energy,omitempty"`
	Addiction  int    `yaml:"addiction,omitempty"`
	Reputation int    `yaml:"reputation,omitempty"`
	Damage     int    `yaml:"damage,omitempty"`
	Defense    int    `yaml:"defense,omitempty"`
	Slots      int    `yaml:"slots,omitempty"`
	Price      int    `yaml:"price,omitempty"`
	SellPrice  int    `yaml:"sell_price,omitempty"`
	Use        string `yaml:"use,omitempty"`
}

// document is the union of all catalog files. Each file fills the keys it defines.
type document struct {
	Items                map[Category]map[string]itemDefinition `yaml:"items"`
	Classes              []Class                                `yaml:"classes"`
	Countries            []Country                              `yaml:"countries"`
	Enemies              []Enemy                                `yaml:"enemies"`
	Bosses               []Boss                                 `yaml:"bosses"`
	Shops                []Shop                                 `yaml:"shops"`
	Reputation           []Faction                              `yaml:"reputation"`
	Levels               Levels                                 `yaml:"levels"`
	Stats                Stats                                  `yaml:"stats"`
	Personality          Personality                            `yaml:"personality"`
	Fight                Fight                                  `yaml:"fight"`
	Walk                 Walk                                   `yaml:"walk"`
	Daily                Daily                                  `yaml:"daily"`
	BackpackDefaultSlots int                                    `yaml:"backpack_default_slots"`
}

// Default loads the catalog embedded in the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embeddedData, "data")
	if err != nil {
		return nil, fmt.Errorf("open embedded catalog: %w", err)
	}
	return LoadFromFS(sub)
}

// MustDefault is Default for package initialisation and tests.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadFromDir loads every *.yaml file in a directory, used to override the
// embedded catalog with content shipped next to the binary.
func LoadFromDir(dir string) (*Catalog, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("catalog directory: %w", err)
	}
	return LoadFromFS(os.DirFS(dir))
}

// LoadFromFS decodes all *.yaml files at the root of fsys into one catalog.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob catalog files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	var doc document
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", filepath.Base(path), err)
		}
	}

	return build(&doc)
}

func build(doc *document) (*Catalog, error) {
	c := &Catalog{
		items:                make(map[string]*Item),
		classes:              make(map[string]*Class),
		countries:            make(map[string]*Country),
		shops:                make(map[string]*Shop),
		factions:             make(map[string]*Faction),
		levels:               doc.Levels,
		stats:                doc.Stats,
		personality:          doc.Personality,
		fight:                doc.Fight,
		walk:                 doc.Walk,
		daily:                doc.Daily,
		defaultBackpackSlots: doc.BackpackDefaultSlots,
	}
	if c.defaultBackpackSlots <= 0 {
		c.defaultBackpackSlots = 5
	}

	for category, defs := range doc.Items {
		for id, def := range defs {
			if _, dup := c.items[id]; dup {
				return nil, fmt.Errorf("item %q defined twice", id)
			}
			rarity := def.Rarity
			if rarity == "" {
				rarity = Common
			}
			if !rarity.IsValid() {
				return nil, fmt.Errorf("item %q: unknown rarity %q", id, def.Rarity)
			}
			c.items[id] = &Item{
				ID:         id,
				Name:       def.Name,
				Emoji:      def.Emoji,
				Category:   category,
				Rarity:     rarity,
				Hunger:     def.Hunger,
				Thirst:     def.Thirst,
				Health:     def.Health,
				Energy:     def.Energy,
				Addiction:  def.Addiction,
				Reputation: def.Reputation,
				Damage:     def.Damage,
				Defense:    def.Defense,
				Slots:      def.Slots,
				Price:      def.Price,
				SellPrice:  def.SellPrice,
				Use:        def.Use,
			}
		}
	}

	for i := range doc.Classes {
		cl := &doc.Classes[i]
		c.classes[cl.ID] = cl
		c.classIDs = append(c.classIDs, cl.ID)
	}
	for i := range doc.Countries {
		co := &doc.Countries[i]
		c.countries[co.ID] = co
		c.countryIDs = append(c.countryIDs, co.ID)
	}
	for i := range doc.Enemies {
		c.enemies = append(c.enemies, &doc.Enemies[i])
	}
	for i := range doc.Bosses {
		c.bosses = append(c.bosses, &doc.Bosses[i])
	}
	for i := range doc.Shops {
		c.shops[doc.Shops[i].ID] = &doc.Shops[i]
	}
	for i := range doc.Reputation {
		c.factions[doc.Reputation[i].ID] = &doc.Reputation[i]
	}

	c.index()

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// validate checks cross references so that lookups at runtime never dangle.
func (c *Catalog) validate() error {
	if len(c.items) == 0 {
		return fmt.Errorf("catalog defines no items")
	}
	if c.levels.BaseXP <= 0 || c.levels.Multiplier <= 0 || c.levels.MaxLevel <= 1 {
		return fmt.Errorf("invalid level curve: base=%d multiplier=%v max=%d",
			c.levels.BaseXP, c.levels.Multiplier, c.levels.MaxLevel)
	}

	check := func(owner, id string) error {
		if _, ok := c.items[id]; !ok {
			return fmt.Errorf("%s references unknown item %q", owner, id)
		}
		return nil
	}

	for _, id := range c.classIDs {
		for _, item := range c.classes[id].StartingItems {
			if err := check("class "+id, item); err != nil {
				return err
			}
		}
	}
	for _, id := range c.countryIDs {
		for _, item := range c.countries[id].SpecialItems {
			if err := check("country "+id, item); err != nil {
				return err
			}
		}
	}
	for _, e := range c.enemies {
		if e.Health <= 0 {
			return fmt.Errorf("enemy %q has no health", e.ID)
		}
		for _, item := range e.Loot {
			if err := check("enemy "+e.ID, item); err != nil {
				return err
			}
		}
	}
	for _, b := range c.bosses {
		if b.Health <= 0 {
			return fmt.Errorf("boss %q has no health", b.ID)
		}
		for _, item := range b.Loot {
			if err := check("boss "+b.ID, item); err != nil {
				return err
			}
		}
	}
	for id, s := range c.shops {
		for _, item := range s.Items {
			if err := check("shop "+id, item); err != nil {
				return err
			}
		}
	}
	for level, reward := range c.levels.Rewards {
		if reward.Item == "" {
			continue
		}
		if err := check(fmt.Sprintf("level %d reward", level), reward.Item); err != nil {
			return err
		}
	}
	if len(c.daily.Chests) == 0 {
		return fmt.Errorf("daily defines no chests")
	}
	for _, chest := range c.daily.Chests {
		if !chest.Rarity.IsValid() {
			return fmt.Errorf("daily chest has unknown rarity %q", chest.Rarity)
		}
	}
	for _, ev := range c.walk.Events {
		if ev.Rarity != "" && !ev.Rarity.IsValid() {
			return fmt.Errorf("walk event %s has unknown rarity %q", ev.Type, ev.Rarity)
		}
	}
	for _, required := range []string{"fists", "rags", "plastic_bag", "bread_stale"} {
		if err := check("defaults", required); err != nil {
			return err
		}
	}
	return nil
}
