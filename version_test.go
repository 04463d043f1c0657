package geomcp

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	t.Parallel()

	v := GetVersion()
	if v == "" {
		t.Fatal("GetVersion() should not return empty string")
	}
	if v != Version {
		t.Errorf("GetVersion() = %s, want %s", v, Version)
	}
	if strings.Count(v, ".") != 2 {
		t.Errorf("Version %q is not major.minor.patch", v)
	}
}
