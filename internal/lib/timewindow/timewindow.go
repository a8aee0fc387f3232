// Package timewindow вычисляет полуоткрытые интервалы [start, end) тренировок
// и проверяет их пересечение.
package timewindow

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

// Window полуоткрытый интервал времени.
type Window struct {
	Start time.Time
	End   time.Time
}

// New строит окно по началу и длительности в минутах.
func New(start *time.Time, durationMin *int) (Window, error) {
	const op = "timewindow.New"
	if start == nil || durationMin == nil {
		return Window{}, fmt.Errorf("%s: start and duration are required: %w", op, models.ErrInvalidWindow)
	}
	if *durationMin <= 0 {
		return Window{}, fmt.Errorf("%s: duration must be positive, got %d: %w", op, *durationMin, models.ErrInvalidWindow)
	}
	return Window{
		Start: *start,
		End:   start.Add(time.Duration(*durationMin) * time.Minute),
	}, nil
}

// Of строит окно тренировки.
func Of(t models.Training) (Window, error) {
	return New(t.StartDate, t.DurationMin)
}

// Scheduled сообщает, есть ли у тренировки и начало, и длительность.
func Scheduled(start *time.Time, durationMin *int) bool {
	return start != nil && durationMin != nil
}

// Overlaps истинно, если интервалы пересекаются. Касание границ пересечением не считается.
func Overlaps(a, b Window) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Around возвращает окно [t-d, t+d].
func Around(t time.Time, d time.Duration) Window {
	return Window{Start: t.Add(-d), End: t.Add(d)}
}

// Contains проверяет, что t лежит в [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// Span возвращает минимальное окно, покрывающее все переданные.
func Span(windows []Window) (Window, bool) {
	if len(windows) == 0 {
		return Window{}, false
	}
	span := windows[0]
	for _, w := range windows[1:] {
		if w.Start.Before(span.Start) {
			span.Start = w.Start
		}
		if w.End.After(span.End) {
			span.End = w.End
		}
	}
	return span, true
}
