// balance is a Monte Carlo simulator for testing game balance.
//
// Usage:
//
//	balance [command] [options]
//
// Commands:
//
//	fights  - Fight one enemy, or every enemy, many times
//	walks   - Average walk payouts per tier
//	levels  - Print the XP curve with level rewards
//	sweep   - Fights and walks for every class
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/utilities/balance"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "fights":
		runFightSim()
	case "walks":
		runWalkSim()
	case "levels":
		runLevelTable()
	case "sweep":
		runSweep()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Bomzh Simulator Balance Tool

A Monte Carlo simulator running the real fight and walk rules.

Usage: balance <command> [options]

Commands:
  fights  Fight one enemy, or every enemy, many times
  walks   Average walk payouts per tier
  levels  Print the XP curve with level rewards
  sweep   Fights and walks for every class

Examples:
  balance fights -class=alcoholic -enemy=gopnik -iterations=10000
  balance fights -class=thief -weapon=pipe -level=10
  balance walks -class=businessman
  balance levels -to=30
  balance sweep -iterations=2000

Use "balance <command> -h" for more information about a command.`)
}

// common registers the flags shared by every simulation.
type common struct {
	catalogDir *string
	seed       *int64
	iterations *int
	class      *string
	country    *string
	level      *int
	weapon     *string
	armor      *string
}

func commonFlags(fs *flag.FlagSet, iterations int) common {
	return common{
		catalogDir: fs.String("catalog", "", "Catalog directory (default: built-in catalog)"),
		seed:       fs.Int64("seed", 0, "Random seed (default: current time)"),
		iterations: fs.Int("iterations", iterations, "Number of simulations to run"),
		class:      fs.String("class", "alcoholic", "Player class"),
		country:    fs.String("country", "russia", "Player country"),
		level:      fs.Int("level", 1, "Player level"),
		weapon:     fs.String("weapon", "", "Equipped weapon item id"),
		armor:      fs.String("armor", "", "Equipped armor item id"),
	}
}

func (c common) profile() balance.Profile {
	return balance.Profile{
		Class:   *c.class,
		Country: *c.country,
		Level:   *c.level,
		Weapon:  *c.weapon,
		Armor:   *c.armor,
	}
}

func (c common) simulator() (*balance.Simulator, *catalog.Catalog) {
	var cat *catalog.Catalog
	var err error
	if *c.catalogDir != "" {
		cat, err = catalog.LoadFromDir(*c.catalogDir)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		fatal(err)
	}

	seed := *c.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return balance.New(cat, dice.NewRand(seed)), cat
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runFightSim() {
	fs := flag.NewFlagSet("fights", flag.ExitOnError)
	c := commonFlags(fs, 10000)
	enemy := fs.String("enemy", "", "Enemy id (default: every enemy)")
	fs.Parse(os.Args[2:])

	sim, _ := c.simulator()
	prof := c.profile()

	fmt.Println("=== Fight Simulation ===")
	fmt.Println()
	printProfile(prof, *c.iterations)

	var results []balance.FightResult
	if *enemy != "" {
		r, err := sim.SimulateFights(prof, *enemy, *c.iterations)
		if err != nil {
			fatal(err)
		}
		results = append(results, r)
	} else {
		var err error
		results, err = sim.SimulateAllEnemies(prof, *c.iterations)
		if err != nil {
			fatal(err)
		}
	}
	printFightTable(results)
}

func runWalkSim() {
	fs := flag.NewFlagSet("walks", flag.ExitOnError)
	c := commonFlags(fs, 10000)
	fs.Parse(os.Args[2:])

	sim, _ := c.simulator()
	prof := c.profile()

	fmt.Println("=== Walk Simulation ===")
	fmt.Println()
	printProfile(prof, *c.iterations)

	results, err := sim.SimulateAllTiers(prof, *c.iterations)
	if err != nil {
		fatal(err)
	}
	printWalkTable(results)
}

func runLevelTable() {
	fs := flag.NewFlagSet("levels", flag.ExitOnError)
	c := commonFlags(fs, 0)
	to := fs.Int("to", 20, "Last level to print")
	fs.Parse(os.Args[2:])

	sim, _ := c.simulator()

	fmt.Println("=== XP Curve ===")
	fmt.Println()
	fmt.Println("Level | To Next | Cumulative | Reward")
	fmt.Println("------+---------+------------+---------------------------")
	for _, row := range sim.LevelCurve() {
		if row.Level > *to {
			break
		}
		var reward []string
		if row.Title != "" {
			reward = append(reward, row.Title)
		}
		if row.Money > 0 {
			reward = append(reward, fmt.Sprintf("%d RUB", row.Money))
		}
		if len(row.Unlocks) > 0 {
			reward = append(reward, "unlocks "+strings.Join(row.Unlocks, ", "))
		}
		fmt.Printf("%5d | %7d | %10d | %s\n", row.Level, row.XPRequired, row.Cumulative, strings.Join(reward, "; "))
	}
}

func runSweep() {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	c := commonFlags(fs, 2000)
	fs.Parse(os.Args[2:])

	sim, cat := c.simulator()

	fmt.Println("=== Balance Sweep ===")
	fmt.Printf("Iterations per cell: %d\n", *c.iterations)

	for _, classID := range cat.ClassIDs() {
		prof := c.profile()
		prof.Class = classID

		fmt.Println()
		fmt.Printf("--- %s ---\n", classID)

		fights, err := sim.SimulateAllEnemies(prof, *c.iterations)
		if err != nil {
			fatal(err)
		}
		printFightTable(fights)

		fmt.Println()
		walks, err := sim.SimulateAllTiers(prof, *c.iterations)
		if err != nil {
			fatal(err)
		}
		printWalkTable(walks)
	}
}

func printProfile(prof balance.Profile, iterations int) {
	weapon, armor := prof.Weapon, prof.Armor
	if weapon == "" {
		weapon = "default"
	}
	if armor == "" {
		armor = "default"
	}
	fmt.Printf("Player: %s from %s, level %d, weapon %s, armor %s\n", prof.Class, prof.Country, max(1, prof.Level), weapon, armor)
	fmt.Printf("Iterations: %d\n", iterations)
	fmt.Println()
}

func printFightTable(results []balance.FightResult) {
	fmt.Println("Enemy            | Win Rate | Avg Rounds | Min-Max | Avg HP Left | Avg Money | Avg Lost")
	fmt.Println("-----------------+----------+------------+---------+-------------+-----------+---------")
	for _, r := range results {
		fmt.Printf("%-16s | %7.1f%% | %10.1f | %3d-%-3d | %11.1f | %9.1f | %8.1f\n",
			r.Enemy, r.WinRate*100, r.AvgRounds, r.MinRounds, r.MaxRounds, r.AvgHPLeft, r.AvgMoney, r.AvgMoneyLost)
	}
}

func printWalkTable(results []balance.WalkResult) {
	fmt.Println("Tier   | Minutes | Energy | Avg Money | Avg XP | XP/Energy | Avg Damage | Items | Fined")
	fmt.Println("-------+---------+--------+-----------+--------+-----------+------------+-------+------")
	for _, r := range results {
		fmt.Printf("%-6s | %7d | %6d | %9.1f | %6.1f | %9.2f | %10.1f | %5.2f | %4.1f%%\n",
			r.Tier, r.Minutes, r.EnergyCost, r.AvgMoney, r.AvgXP, r.XPPerEnergy, r.AvgDamage, r.AvgItems, r.FineRate*100)
	}
}
