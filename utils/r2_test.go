package utils

import (
	"strings"
	"testing"
)

func TestDeliveryKey(t *testing.T) {
	tests := []struct {
		desc     string
		filename string
		wantPart string
	}{
		{"plain name", "plumbers.csv", "/plumbers-"},
		{"spaces and case", "NYC Dentists Export.csv", "/nyc-dentists-export-"},
		{"weird chars", "Überführung (final).csv", "/uberfuhrung-final-"},
		{"empty base", ".csv", "/export-"},
	}

	for _, tt := range tests {
		key := DeliveryKey("order-123", tt.filename)
		if !strings.HasPrefix(key, "deliveries/order-123/") {
			t.Errorf("%s: key %q missing order prefix", tt.desc, key)
		}
		if !strings.Contains(key, tt.wantPart) {
			t.Errorf("%s: key %q missing %q", tt.desc, key, tt.wantPart)
		}
		if !strings.HasSuffix(key, ".csv") {
			t.Errorf("%s: key %q missing .csv suffix", tt.desc, key)
		}
	}
}
