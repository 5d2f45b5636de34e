package game

import (
	"fmt"
	"sort"
	"strings"
)

// Stat is one bounded player statistic. Value stays within [0, Max].
type Stat struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// World is the mutable game state for one adventure.
type World struct {
	Stats     map[string]Stat `json:"stats"`
	Inventory []string        `json:"inventory"`
	Defeated  bool            `json:"defeated"`
}

// NewWorld creates the starting world state.
func NewWorld() World {
	return World{
		Stats: map[string]Stat{
			"health": {Value: 10, Max: 10},
			"gold":   {Value: 5, Max: 100},
		},
		Inventory: []string{},
	}
}

// AdjustStat applies delta to a named stat, clamping to [0, Max], and
// returns the resulting value. Unknown stats report false.
func (w *World) AdjustStat(name string, delta int) (Stat, bool) {
	s, ok := w.Stats[name]
	if !ok {
		return Stat{}, false
	}
	s.Value += delta
	if s.Value < 0 {
		s.Value = 0
	}
	if s.Value > s.Max {
		s.Value = s.Max
	}
	w.Stats[name] = s
	if name == "health" && s.Value == 0 {
		w.Defeated = true
	}
	return s, true
}

// Grant adds an item to the inventory.
func (w *World) Grant(item string) {
	w.Inventory = append(w.Inventory, item)
}

// Use removes the item at index i.
func (w *World) Use(i int) string {
	item := w.Inventory[i]
	w.Inventory = append(w.Inventory[:i], w.Inventory[i+1:]...)
	return item
}

// Describe renders the world for reading back to the player.
func (w *World) Describe() string {
	names := make([]string, 0, len(w.Stats))
	for name := range w.Stats {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		s := w.Stats[name]
		parts[i] = fmt.Sprintf("%s %d of %d", name, s.Value, s.Max)
	}
	inv := "nothing"
	if len(w.Inventory) > 0 {
		inv = strings.Join(w.Inventory, ", ")
	}
	return fmt.Sprintf("Your stats: %s. You are carrying: %s.", strings.Join(parts, ", "), inv)
}
