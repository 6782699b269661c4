package engine

import "testing"

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"gl", BackendGL, false},
		{"gpu", BackendGL, false},
		{"soft", BackendSoft, false},
		{"cpu", BackendSoft, false},
		{"vulkan", BackendGL, true},
	}
	for _, tc := range tests {
		got, err := ParseBackend(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseBackend(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseBackend(%q) = %s, want %s", tc.in, got, tc.want)
		}
		if !tc.wantErr && got.String() == "" {
			t.Errorf("%v has no name", got)
		}
	}
}
