package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{
			name:       "CPU-bound task (1.0x multiplier)",
			multiplier: 1.0,
			minExpect:  1,
			maxExpect:  availableCPU,
		},
		{
			name:       "I/O-bound task (2.0x multiplier)",
			multiplier: 2.0,
			minExpect:  1,
			maxExpect:  availableCPU * 2,
		},
		{
			name:       "Mixed task (1.5x multiplier)",
			multiplier: 1.5,
			minExpect:  1,
			maxExpect:  max(1, int(float64(availableCPU)*1.5)),
		},
		{
			name:       "With limit lower than calculated",
			multiplier: 2.0,
			limit:      2,
			minExpect:  1,
			maxExpect:  2,
		},
		{
			name:       "Zero multiplier never goes below one",
			multiplier: 0,
			minExpect:  1,
			maxExpect:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want between %d and %d",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountIgnoresPoolOverrides(t *testing.T) {
	t.Setenv(DecodeWorkersEnv, "37")
	t.Setenv(ThumbnailWorkersEnv, "41")

	if got, want := Count(1.0, 0), runtime.GOMAXPROCS(0); got != want {
		t.Errorf("Count(1.0, 0) = %d, want %d", got, want)
	}
}

func TestOverride(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		want   int
		wantOK bool
	}{
		{"unset", "", 0, false},
		{"valid", "4", 4, true},
		{"non-numeric", "many", 0, false},
		{"zero", "0", 0, false},
		{"negative", "-5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DecodeWorkersEnv, tt.value)
			got, ok := Override(DecodeWorkersEnv)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Override(%q) = %d, %v, want %d, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestForDecode(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int // -1 means computed default
	}{
		{"override", "6", 0, 6},
		{"override capped by limit", "32", 8, 8},
		{"invalid override", "abc", 0, -1},
		{"no override", "", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DecodeWorkersEnv, tt.envValue)
			got := ForDecode(tt.limit)

			if tt.expected < 0 {
				if want := Count(1.5, tt.limit); got != want {
					t.Errorf("ForDecode(%d) = %d, want computed %d", tt.limit, got, want)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("ForDecode(%d) with %s=%s = %d, want %d",
					tt.limit, DecodeWorkersEnv, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForThumbnails(t *testing.T) {
	t.Setenv(DecodeWorkersEnv, "9")
	t.Setenv(ThumbnailWorkersEnv, "")

	if got, want := ForThumbnails(4), Count(1.0, 4); got != want {
		t.Errorf("ForThumbnails(4) = %d, want %d", got, want)
	}

	t.Setenv(ThumbnailWorkersEnv, "3")
	if got := ForThumbnails(0); got != 3 {
		t.Errorf("ForThumbnails(0) with override = %d, want 3", got)
	}
	if got := ForThumbnails(2); got != 2 {
		t.Errorf("ForThumbnails(2) with override 3 = %d, want 2", got)
	}
}

func BenchmarkForDecode(b *testing.B) {
	b.Run("No override", func(b *testing.B) {
		b.Setenv(DecodeWorkersEnv, "")
		for i := 0; i < b.N; i++ {
			_ = ForDecode(10)
		}
	})

	b.Run("With override", func(b *testing.B) {
		b.Setenv(DecodeWorkersEnv, "8")
		for i := 0; i < b.N; i++ {
			_ = ForDecode(10)
		}
	})
}
