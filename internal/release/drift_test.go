package release

import "testing"

func TestCompare(t *testing.T) {
	tests := []struct {
		previous, latest string
		want             Drift
	}{
		{"", "1.0.0", DriftInitial},
		{"1.2.0", "1.3.0", DriftUpgrade},
		{"v1.2.0", "v1.10.0", DriftUpgrade},
		{"1.3.0", "1.2.0", DriftDowngrade},
		{"1.3.0", "1.3.0", DriftReinstall},
		{"v1.3.0", "1.3.0", DriftReinstall},
		{"nightly-42", "1.0.0", DriftUnknown},
		{"1.0.0", "latest", DriftUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.previous+"->"+tt.latest, func(t *testing.T) {
			if got := Compare(tt.previous, tt.latest); got != tt.want {
				t.Errorf("Compare(%q, %q) = %s, want %s", tt.previous, tt.latest, got, tt.want)
			}
		})
	}
}

func TestDriftString(t *testing.T) {
	want := map[Drift]string{
		DriftInitial:   "install",
		DriftUpgrade:   "upgrade",
		DriftDowngrade: "downgrade",
		DriftReinstall: "reinstall",
		DriftUnknown:   "update",
	}
	for d, s := range want {
		if d.String() != s {
			t.Errorf("Drift(%d).String() = %q, want %q", d, d.String(), s)
		}
	}
}
