package pgdock_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

func TestWrapConnectError(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantIs   error
		wantHint string
	}{
		{"refused", "dial tcp 127.0.0.1:5432: connection refused", pgdock.ErrConnection, "pg_isready"},
		{"no host", "lookup dbhost: no such host", pgdock.ErrConnection, "DNS"},
		{"bad password", "FATAL: password authentication failed for user \"app\"", pgdock.ErrConnection, "PGPASSWORD"},
		{"timeout", "dial tcp: i/o timeout", pgdock.ErrTimeout, "overloaded"},
		{"deadline", "context deadline exceeded", pgdock.ErrTimeout, "overloaded"},
		{"tls", "tls: failed to verify certificate", pgdock.ErrConnection, "SSL"},
		{"other", "unexpected EOF", pgdock.ErrConnection, "unexpected EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := pgdock.WrapConnectError(errors.New(tt.raw), "dbhost", 5432, "orders")
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("WrapConnectError(%q) = %v, want %v", tt.raw, err, tt.wantIs)
			}
			if !strings.Contains(err.Error(), tt.wantHint) {
				t.Errorf("WrapConnectError(%q) missing hint %q:\n%v", tt.raw, tt.wantHint, err)
			}
			if !strings.Contains(err.Error(), tt.raw) {
				t.Errorf("WrapConnectError(%q) dropped the original error", tt.raw)
			}
		})
	}
}
