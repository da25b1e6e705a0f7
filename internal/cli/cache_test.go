package cli

import (
	"path/filepath"
	"testing"
)

func TestCacheDir(t *testing.T) {
	tests := []struct {
		name     string
		override string
		xdg      string
		home     string
		want     string
	}{
		{"override", "/tmp/lc", "/xdg", "/home/u", "/tmp/lc"},
		{"xdg", "", "/xdg", "/home/u", filepath.Join("/xdg", "legalize")},
		{"home", "", "", "/home/u", filepath.Join("/home/u", ".cache", "legalize")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(cacheDirEnv, tt.override)
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			t.Setenv("HOME", tt.home)

			got, err := cacheDir()
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("cacheDir() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewCache(t *testing.T) {
	dir := t.TempDir()

	c, err := newCache(false, dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(interface{ Dir() string }); !ok {
		t.Errorf("newCache(false, dir) = %T, want a file cache", c)
	}

	c, err = newCache(true, dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(interface{ Dir() string }); ok {
		t.Errorf("newCache(true, dir) = %T, want the null cache", c)
	}
}
