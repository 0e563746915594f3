package ledger

import "github.com/fdg312/meal-hub/internal/storage"

// NutrientsOf returns the five tracked values of a catalog meal; absent fiber counts as 0.
func NutrientsOf(m storage.Meal) storage.Nutrients {
	n := storage.Nutrients{
		Calories: m.Calories,
		ProteinG: m.ProteinG,
		CarbsG:   m.CarbsG,
		FatG:     m.FatG,
	}
	if m.FiberG != nil {
		n.FiberG = *m.FiberG
	}
	return n
}

func add(a, b storage.Nutrients) storage.Nutrients {
	return storage.Nutrients{
		Calories: a.Calories + b.Calories,
		ProteinG: a.ProteinG + b.ProteinG,
		CarbsG:   a.CarbsG + b.CarbsG,
		FatG:     a.FatG + b.FatG,
		FiberG:   a.FiberG + b.FiberG,
	}
}

func sub(a, b storage.Nutrients) storage.Nutrients {
	return storage.Nutrients{
		Calories: a.Calories - b.Calories,
		ProteinG: a.ProteinG - b.ProteinG,
		CarbsG:   a.CarbsG - b.CarbsG,
		FatG:     a.FatG - b.FatG,
		FiberG:   a.FiberG - b.FiberG,
	}
}

// Delta is new minus original for every nutrient. Components may be negative.
func Delta(original, replacement storage.Meal) storage.Nutrients {
	return sub(NutrientsOf(replacement), NutrientsOf(original))
}

// sumSnapshots adds up the snapshots of occupied slots in slot order.
func sumSnapshots(l *storage.DailyLog) storage.Nutrients {
	var total storage.Nutrients
	for _, slot := range storage.Slots {
		if l.MealID(slot) == nil {
			continue
		}
		total = add(total, l.SlotSnapshots[slot])
	}
	return total
}

func setSnapshot(l *storage.DailyLog, slot string, n storage.Nutrients) {
	if l.SlotSnapshots == nil {
		l.SlotSnapshots = make(map[string]storage.Nutrients, len(storage.Slots))
	}
	l.SlotSnapshots[slot] = n
}
