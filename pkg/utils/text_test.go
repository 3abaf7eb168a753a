package utils

import (
	"strings"
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	long := strings.Repeat("a", 5000)
	if got := Truncate(long, 4000); len(got) != 4003 || !strings.HasSuffix(got, "...") {
		t.Errorf("long answer truncation: len=%d", len(got))
	}
}
