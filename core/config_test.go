package core

import (
	"strings"
	"testing"
)

func Test_checkSecretKey(t *testing.T) {
	strong := strings.Repeat("s3cr3t!", 6)
	tests := []struct {
		env     string
		key     string
		wantErr bool
	}{
		{"DEV", devSecretKey, false},
		{"DEV", "", false},
		{"TEST", "secret", false},
		{"QA", "", true},
		{"QA", devSecretKey, true},
		{"QA", strong, false},
		{"PROD", "", true},
		{"PROD", devSecretKey, true},
		{"PROD", "short-key", true},
		{"PROD", strong, false},
	}
	for _, tt := range tests {
		err := checkSecretKey(tt.env, tt.key)
		if (err != nil) != tt.wantErr {
			t.Errorf("checkSecretKey(%s, %q) = %v; wantErr %v", tt.env, tt.key, err, tt.wantErr)
		}
	}
}
