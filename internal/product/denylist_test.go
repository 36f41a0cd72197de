package product_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/product"
)

func TestLoadDenylist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "denylist.txt")
	require.NoError(t, os.WriteFile(path, []byte("MW00001\n\n  \nRH00002\n"), 0o600))

	cases := []struct {
		name     string
		location string
		wantLen  int
		wantErr  bool
	}{
		{"absolute path", path, 2, false},
		{"file prefix", "file:" + path, 2, false},
		{"empty location", "", 0, false},
		{"relative path", "denylist.txt", 0, true},
		{"missing file", "/does/not/exist", 0, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := product.LoadDenylist(tc.location, nullLogger)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantLen, d.Len())
		})
	}
}

func TestDenied(t *testing.T) {
	d := product.NewDenylist(nullLogger, "MW00001", "RH00002")

	cases := []struct {
		sku  string
		want bool
	}{
		{"MW00001", true},
		{"MW00001S", true},
		{"MW00001F3RN", true},
		{"MW00001RN", true},
		{"MW00001HR", true},
		{"MW00003", false},
		{"MW0000", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.sku, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Denied(tc.sku))
		})
	}
}
