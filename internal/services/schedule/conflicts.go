package schedule

import (
	"sort"

	"github.com/magabrotheeeer/attendance-checkin/internal/lib/timewindow"
	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Item окно тренировки с именем и происхождением.
type Item struct {
	Name   string
	Origin models.Origin
	Window timewindow.Window
}

// FindConflicts возвращает все пары пересекающихся окон.
//
// Окна сортируются по началу, затем выполняется проход с множеством ещё не закончившихся
// окон: каждое новое окно сравнивается со всеми окнами, чей конец позже его начала.
// Пары, где обе тренировки уже существуют, не сообщаются.
func FindConflicts(items []Item) []models.ConflictPair {
	sorted := make([]Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Window.Start.Before(sorted[j].Window.Start)
	})

	var pairs []models.ConflictPair
	active := make([]Item, 0, len(sorted))
	for _, cur := range sorted {
		kept := active[:0]
		for _, a := range active {
			if a.Window.End.After(cur.Window.Start) {
				kept = append(kept, a)
			}
		}
		active = kept

		for _, a := range active {
			if a.Origin == models.OriginExisting && cur.Origin == models.OriginExisting {
				continue
			}
			if timewindow.Overlaps(a.Window, cur.Window) {
				pairs = append(pairs, models.ConflictPair{
					NameA:   a.Name,
					OriginA: a.Origin,
					NameB:   cur.Name,
					OriginB: cur.Origin,
				})
			}
		}
		active = append(active, cur)
	}
	return pairs
}
