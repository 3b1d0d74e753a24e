package visibility

import "testing"

func TestParseMargin(t *testing.T) {
	tests := []struct {
		in      string
		want    Margin
		wantErr bool
	}{
		{"0px", Margin{}, false},
		{"2", Margin{2, 2, 2, 2}, false},
		{"1px 2px", Margin{1, 2, 1, 2}, false},
		{"1 2 3", Margin{1, 2, 3, 2}, false},
		{"1px 2px 3px -4PX", Margin{1, 2, 3, -4}, false},
		{"", Margin{}, true},
		{"10%", Margin{}, true},
		{"1 2 3 4 5", Margin{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMargin(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMargin(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("ParseMargin(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIntersectionRatio(t *testing.T) {
	root := Rect{X: 0, Y: 0, W: 10, H: 10}
	if got := intersectionRatio(Rect{X: 5, Y: 5, W: 10, H: 10}, root); got != 0.25 {
		t.Fatalf("ratio = %v, want 0.25", got)
	}
	if got := intersectionRatio(Rect{X: 20, Y: 0, W: 2, H: 2}, root); got != 0 {
		t.Fatalf("ratio = %v, want 0", got)
	}
	if got := intersectionRatio(Rect{X: 3, Y: 3}, root); got != 1 {
		t.Fatalf("zero-area inside ratio = %v, want 1", got)
	}
	if got := (Rect{W: 4, H: 4}).Grow(Margin{Top: -3, Bottom: -3}); got.H != 0 {
		t.Fatalf("Grow should clamp height at 0, got %+v", got)
	}
}
