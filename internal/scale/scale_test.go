package scale

import "testing"

func TestFitBudget(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		target     int64
		wantW      int
		wantH      int
		wantResize bool
	}{
		{"8MP down to 1MP", 4000, 2000, 1_000_000, 1414, 707, true},
		{"6MP down to 2MP", 3000, 2000, 2_000_000, 1732, 1154, true},
		{"small image untouched", 500, 500, 1_000_000, 500, 500, false},
		{"exactly at budget untouched", 1000, 1000, 1_000_000, 1000, 1000, false},
		{"one pixel over budget", 1000, 1001, 1_000_000, 999, 1000, true},
		{"portrait orientation", 2000, 4000, 1_000_000, 707, 1414, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH, gotResize := FitBudget(tt.width, tt.height, tt.target)
			if gotW != tt.wantW || gotH != tt.wantH || gotResize != tt.wantResize {
				t.Errorf(
					"FitBudget(%d, %d, %d) = (%d, %d, %v), want (%d, %d, %v)",
					tt.width, tt.height, tt.target,
					gotW, gotH, gotResize,
					tt.wantW, tt.wantH, tt.wantResize,
				)
			}
		})
	}
}

func TestFitBudget_NeverExceedsBudget(t *testing.T) {
	dims := []struct{ w, h int }{
		{4000, 3000}, {6000, 4000}, {1920, 1080}, {8192, 8192}, {3000, 9000},
	}
	const target = int64(2_000_000)
	for _, d := range dims {
		w, h, resize := FitBudget(d.w, d.h, target)
		if !resize {
			continue
		}
		if got := int64(w) * int64(h); got > target {
			t.Errorf("FitBudget(%d, %d, %d) produced %d pixels, over budget", d.w, d.h, target, got)
		}
	}
}
