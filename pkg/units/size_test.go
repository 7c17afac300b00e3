package units

import "testing"

func TestHumanSize(t *testing.T) {
	tests := []struct {
		size float64
		want string
	}{
		{0, "0B"},
		{1000, "1kB"},
		{1536000, "1.54MB"},
		{2.5 * GB, "2.5GB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.size); got != tt.want {
			t.Errorf("HumanSize(%v) = %q, want %q", tt.size, got, tt.want)
		}
	}
}

func TestFromHumanSize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "4096", want: 4096},
		{in: "200MB", want: 200 * MB},
		{in: "1.5GB", want: 1500 * MB},
		{in: "1GiB", want: GiB},
		{in: "512 kB", want: 512 * KB},
		{in: "32b", want: 32},
		{in: "", wantErr: true},
		{in: "MB", wantErr: true},
		{in: "10XB", wantErr: true},
	}
	for _, tt := range tests {
		got, err := FromHumanSize(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("FromHumanSize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("FromHumanSize(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
