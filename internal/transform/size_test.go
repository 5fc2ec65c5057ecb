package transform

import "testing"

func TestResolveSize(t *testing.T) {
	tests := []struct {
		name             string
		origW, origH     int
		targetW, targetH int
		keepRatio, fit   bool
		want             Size
	}{
		{
			name:  "width constrained keeps ratio",
			origW: 200, origH: 100, targetW: 100, targetH: 0,
			keepRatio: true,
			want:      Size{100, 50},
		},
		{
			name:  "height constrained keeps ratio",
			origW: 200, origH: 100, targetW: 0, targetH: 50,
			keepRatio: true,
			want:      Size{100, 50},
		},
		{
			name:  "unconstrained is a no-op",
			origW: 200, origH: 100, targetW: 0, targetH: 0,
			keepRatio: true,
			want:      Size{200, 100},
		},
		{
			name:  "both constrained fits within the box",
			origW: 200, origH: 100, targetW: 50, targetH: 50,
			keepRatio: true,
			want:      Size{50, 25},
		},
		{
			name:  "fit fills the box",
			origW: 200, origH: 100, targetW: 50, targetH: 50,
			keepRatio: true, fit: true,
			want: Size{100, 50},
		},
		{
			name:  "fit unconstrained is a no-op",
			origW: 200, origH: 100, targetW: 0, targetH: 0,
			keepRatio: true, fit: true,
			want: Size{200, 100},
		},
		{
			name:  "stretch ignores aspect",
			origW: 200, origH: 100, targetW: 120, targetH: 80,
			keepRatio: false,
			want:      Size{120, 80},
		},
		{
			name:  "stretch passes zero targets verbatim",
			origW: 200, origH: 100, targetW: 120, targetH: 0,
			keepRatio: false,
			want:      Size{120, 0},
		},
		{
			name:  "rounds half away from zero",
			origW: 10, origH: 3, targetW: 5, targetH: 0,
			keepRatio: true,
			want:      Size{5, 2}, // 3 * 0.5 = 1.5 rounds up
		},
		{
			name:  "upscales when the target exceeds the source",
			origW: 100, origH: 50, targetW: 200, targetH: 0,
			keepRatio: true,
			want:      Size{200, 100},
		},
		{
			name:  "degenerate source passes the target through",
			origW: 0, origH: 0, targetW: 40, targetH: 40,
			keepRatio: true,
			want:      Size{40, 40},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveSize(tt.origW, tt.origH, tt.targetW, tt.targetH, tt.keepRatio, tt.fit)
			if got != tt.want {
				t.Errorf("ResolveSize() = %dx%d, want %dx%d", got.Width, got.Height, tt.want.Width, tt.want.Height)
			}
		})
	}
}

func TestDescriptor_ResolveSize(t *testing.T) {
	d := NewDescriptor("/srv/images/photo.jpg").Resize(100, 0)

	got := d.ResolveSize(200, 100)
	want := Size{100, 50}
	if got != want {
		t.Errorf("ResolveSize() = %dx%d, want %dx%d", got.Width, got.Height, want.Width, want.Height)
	}
}
