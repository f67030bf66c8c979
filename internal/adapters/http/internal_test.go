package http

import "testing"

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		action  string
		wantErr bool
	}{
		{"lt-btn", "pan", false},
		{" dn-btn\n", "pan", false},
		{`{"action":"pan","direction":"up-btn"}`, "pan", false},
		{`{"action":"goto","x":1,"y":2}`, "goto", false},
		{`{"action":"redraw"}`, "redraw", false},
		{"jump", "", true},
		{`{"action":"pan","direction":"sideways"}`, "", true},
		{`{"action":"zoom"}`, "", true},
		{`{"action":`, "", true},
	}
	for _, tt := range tests {
		m, err := parseCommand([]byte(tt.in))
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: unexpected error %v", tt.in, err)
			continue
		}
		if err == nil && m.Action != tt.action {
			t.Errorf("%q: expected action %s, got %s", tt.in, tt.action, m.Action)
		}
	}
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		path, pattern string
		want          bool
	}{
		{"/ways", "/ways", true},
		{"/v1/ways", "/ways", false},
		{"/v1/tiles/3/4", "/v1/tiles/:x/:y", true},
		{"/v1/tiles/3/4/png", "/v1/tiles/:x/:y", false},
		{"/v1/tiles/3", "/v1/tiles/:x/:y", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.path, tt.pattern); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.path, tt.pattern, got, tt.want)
		}
	}
}

func TestETagMatches(t *testing.T) {
	etag := `W/"abc"`
	if !etagMatches(`W/"zzz", W/"abc"`, etag) {
		t.Error("expected match in list")
	}
	if !etagMatches("*", etag) {
		t.Error("expected wildcard match")
	}
	if etagMatches("", etag) || etagMatches(`W/"zzz"`, etag) {
		t.Error("unexpected match")
	}
}
