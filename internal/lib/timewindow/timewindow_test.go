package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/attendance-checkin/internal/models"
)

func at(hh, mm int) time.Time {
	return time.Date(2025, 3, 10, hh, mm, 0, 0, time.UTC)
}

func win(h0, m0, h1, m1 int) Window {
	return Window{Start: at(h0, m0), End: at(h1, m1)}
}

func intPtr(v int) *int { return &v }

func TestNew(t *testing.T) {
	start := at(10, 0)
	tests := []struct {
		name     string
		start    *time.Time
		duration *int
		want     Window
		wantErr  bool
	}{
		{name: "valid", start: &start, duration: intPtr(60), want: win(10, 0, 11, 0)},
		{name: "missing start", duration: intPtr(60), wantErr: true},
		{name: "missing duration", start: &start, wantErr: true},
		{name: "zero duration", start: &start, duration: intPtr(0), wantErr: true},
		{name: "negative duration", start: &start, duration: intPtr(-15), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.start, tt.duration)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, models.ErrInvalidWindow)
				assert.ErrorIs(t, err, models.ErrBadRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Window
		want bool
	}{
		{name: "partial overlap", a: win(10, 0, 11, 0), b: win(10, 30, 11, 30), want: true},
		{name: "back to back", a: win(9, 0, 10, 0), b: win(10, 0, 11, 0), want: false},
		{name: "nested", a: win(9, 0, 12, 0), b: win(10, 0, 10, 30), want: true},
		{name: "identical", a: win(9, 0, 10, 0), b: win(9, 0, 10, 0), want: true},
		{name: "disjoint", a: win(8, 0, 9, 0), b: win(10, 0, 11, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Overlaps(tt.a, tt.b))
			assert.Equal(t, tt.want, Overlaps(tt.b, tt.a), "overlap must be symmetric")
		})
	}
}

func TestOverlaps_SymmetricAndDisjointGrid(t *testing.T) {
	// все интервалы с концами на сетке по 15 минут в пределах двух часов
	var windows []Window
	for s := 0; s < 8; s++ {
		for e := s + 1; e <= 8; e++ {
			windows = append(windows, Window{
				Start: at(9, 0).Add(time.Duration(s*15) * time.Minute),
				End:   at(9, 0).Add(time.Duration(e*15) * time.Minute),
			})
		}
	}

	for _, a := range windows {
		for _, b := range windows {
			assert.Equal(t, Overlaps(a, b), Overlaps(b, a))
			if !a.End.After(b.Start) || !b.End.After(a.Start) {
				assert.False(t, Overlaps(a, b), "a=%v b=%v", a, b)
			}
		}
	}
}

func TestSpan(t *testing.T) {
	_, ok := Span(nil)
	assert.False(t, ok)

	span, ok := Span([]Window{win(10, 0, 11, 0), win(8, 30, 9, 0), win(10, 30, 12, 15)})
	require.True(t, ok)
	assert.Equal(t, win(8, 30, 12, 15), span)
}

func TestAroundContains(t *testing.T) {
	w := Around(at(10, 0), 15*time.Minute)
	assert.True(t, w.Contains(at(9, 45)))
	assert.True(t, w.Contains(at(10, 15)))
	assert.False(t, w.Contains(at(10, 16)))
	assert.False(t, w.Contains(at(9, 44)))
}
