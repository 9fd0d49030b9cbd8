package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFormatSeconds(t *testing.T) {
	cases := map[float64]string{
		0:       "00:00:00.000",
		1.5:     "00:00:01.500",
		61.25:   "00:01:01.250",
		3723.04: "01:02:03.040",
		-3:      "00:00:00.000",
	}
	for in, want := range cases {
		if got := FormatSeconds(in); got != want {
			t.Errorf("FormatSeconds(%v) = %s, want %s", in, got, want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	cases := map[string]float64{
		"45.5":         45.5,
		"01:30":        90,
		"01:02:03.5":   3723.5,
		" 00:00:02.0 ": 2,
	}
	for in, want := range cases {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseTimestamp("1:2:3:4"); err == nil {
		t.Error("expected error for too many fields")
	}
	if _, err := ParseTimestamp("abc"); err == nil {
		t.Error("expected error for garbage")
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30000/1001"); got < 29.97 || got > 29.98 {
		t.Errorf("got %v, want ~29.97", got)
	}
	if got := ParseFrameRate("25/0"); got != 0 {
		t.Errorf("zero denominator should yield 0, got %v", got)
	}
	if got := ParseFrameRate("25"); got != 0 {
		t.Errorf("malformed rate should yield 0, got %v", got)
	}
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "nested", "dst.bin")

	if err := WriteFile(src, []byte("payload")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := EnsureParent(dst); err != nil {
		t.Fatalf("ensure parent: %v", err)
	}
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("copied %q", data)
	}
	if !FileExists(dst) {
		t.Error("FileExists should report the copy")
	}

	CleanupFiles(src, dst)
	if FileExists(src) || FileExists(dst) {
		t.Error("files not cleaned up")
	}
}
