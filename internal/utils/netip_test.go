package utils

import (
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remote     string
		headers    map[string]string
		trustProxy bool
		want       string
	}{
		{name: "remote addr", remote: "192.0.2.1:4321", want: "192.0.2.1"},
		{name: "ipv6 remote", remote: "[2001:db8::1]:80", want: "2001:db8::1"},
		{
			name:    "headers ignored without trust",
			remote:  "192.0.2.1:4321",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:    "192.0.2.1",
		},
		{
			name:       "left-most forwarded for",
			remote:     "127.0.0.1:4321",
			headers:    map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"},
			trustProxy: true,
			want:       "203.0.113.9",
		},
		{
			name:   "cloudflare header first",
			remote: "127.0.0.1:4321",
			headers: map[string]string{
				"CF-Connecting-IP": "198.51.100.7",
				"X-Forwarded-For":  "203.0.113.9",
			},
			trustProxy: true,
			want:       "198.51.100.7",
		},
		{
			name:       "garbage header falls through",
			remote:     "127.0.0.1:4321",
			headers:    map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.8"},
			trustProxy: true,
			want:       "198.51.100.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIPMatcher(t *testing.T) {
	m := NewIPMatcher([]string{"10.0.0.0/8", " 192.0.2.4 ", "not-an-ip", "", "2001:db8::/32"})
	if m.IsEmpty() {
		t.Fatal("matcher should not be empty")
	}

	tests := map[string]bool{
		"10.20.30.40":     true,
		"192.0.2.4":       true,
		"192.0.2.5":       false,
		"::ffff:10.0.0.1": true,
		"2001:db8:1::1":   true,
		"2001:db9::1":     false,
		"definitely-not":  false,
		"":                false,
	}
	for ip, want := range tests {
		if got := m.Allow(ip); got != want {
			t.Errorf("Allow(%q) = %v, want %v", ip, got, want)
		}
	}

	if !NewIPMatcher(nil).IsEmpty() {
		t.Error("nil list should give an empty matcher")
	}
}
