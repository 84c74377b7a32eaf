package common

import (
	"strings"
	"testing"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"plain", "https://www.booking.com/searchresults.html?ss=Paris", "https://www.booking.com/searchresults.html?ss=Paris", false},
		{"trailing comma", "https://www.booking.com/searchresults.html?ss=Paris,", "https://www.booking.com/searchresults.html?ss=Paris", false},
		{"markdown link", "[results](https://www.booking.com/searchresults.html)", "https://www.booking.com/searchresults.html", false},
		{"local port", "http://127.0.0.1:8080/page", "http://127.0.0.1:8080/page", false},
		{"empty", "   ", "", true},
		{"spaces", "https://www.booking.com/search results", "", true},
		{"no scheme", "www.booking.com", "", true},
		{"ftp", "ftp://booking.com/file", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateURL(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFilterResultFields(t *testing.T) {
	type result struct {
		Status string `json:"status"`
		Clicks int    `json:"clicks"`
		URL    string `json:"url"`
	}
	r := result{Status: "complete", Clicks: 3, URL: "https://www.booking.com/"}

	all := FilterResultFields(r, "")
	if len(all) != 3 {
		t.Errorf("FilterResultFields(all) = %v", all)
	}

	some := FilterResultFields(r, "status, clicks")
	if len(some) != 2 || some["status"] != "complete" || some["clicks"] != float64(3) {
		t.Errorf("FilterResultFields(status,clicks) = %v", some)
	}
}

func TestWriteOutput(t *testing.T) {
	v := struct {
		Status string `json:"status" yaml:"status"`
	}{Status: "partial"}

	tests := []struct {
		format  string
		want    string
		wantErr bool
	}{
		{"yaml", "status: partial\n", false},
		{"", "status: partial\n", false},
		{"json", "{\n  \"status\": \"partial\"\n}\n", false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		var b strings.Builder
		err := WriteOutput(&b, tt.format, v)
		if (err != nil) != tt.wantErr {
			t.Errorf("WriteOutput(%q) error = %v", tt.format, err)
		}
		if b.String() != tt.want {
			t.Errorf("WriteOutput(%q) = %q, want %q", tt.format, b.String(), tt.want)
		}
	}
}
