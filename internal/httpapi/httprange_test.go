package httpapi

import "testing"

func TestParseRange(t *testing.T) {
	const size = int64(1000)

	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantErr   bool
	}{
		{name: "simple range", header: "bytes=0-499", wantStart: 0, wantEnd: 499},
		{name: "open ended", header: "bytes=500-", wantStart: 500, wantEnd: 999},
		{name: "suffix range", header: "bytes=-200", wantStart: 800, wantEnd: 999},
		{name: "suffix larger than size clamps to 0", header: "bytes=-5000", wantStart: 0, wantEnd: 999},
		{name: "end beyond size clamps", header: "bytes=900-5000", wantStart: 900, wantEnd: 999},
		{name: "wrong unit", header: "items=0-10", wantErr: true},
		{name: "multiple ranges unsupported", header: "bytes=0-10,20-30", wantErr: true},
		{name: "start out of range", header: "bytes=1000-1001", wantErr: true},
		{name: "end before start", header: "bytes=100-50", wantErr: true},
		{name: "empty spec", header: "bytes=-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := ParseRange(tt.header, size)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange(%q) error = %v, wantErr %v", tt.header, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("ParseRange(%q) = (%d, %d), want (%d, %d)", tt.header, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestBuildContentRange(t *testing.T) {
	got := BuildContentRange(0, 499, 1000)
	want := "bytes 0-499/1000"
	if got != want {
		t.Errorf("BuildContentRange() = %q, want %q", got, want)
	}
}

func TestAudioMimeForPath(t *testing.T) {
	tests := map[string]string{
		".mp3":  "audio/mpeg",
		".M4A":  "audio/mp4",
		".flac": "audio/flac",
		".xyz":  "application/octet-stream",
	}
	for ext, want := range tests {
		if got := AudioMimeForPath(ext); got != want {
			t.Errorf("AudioMimeForPath(%q) = %q, want %q", ext, got, want)
		}
	}
}
