package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"aisubs/internal/services"
	"aisubs/internal/testsupport"
)

const showFixture = `1
00:00:01,000 --> 00:00:02,500
first line

2
00:00:10,000 --> 00:00:12,000
second line
continued

3
00:01:05,000 --> 00:01:07,000
third line
`

func TestShowListsAllEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.srt")
	testsupport.WriteText(t, path, showFixture)

	out, _, err := runCLI(t, []string{"show", path}, "")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "first line")
	requireContains(t, out, "second line / continued")
	requireContains(t, out, "00:01:05,000")
	requireContains(t, out, "3 of 3 entries")
}

func TestShowFiltersByWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.srt")
	testsupport.WriteText(t, path, showFixture)

	out, _, err := runCLI(t, []string{"show", path, "--ss", "5", "--to", "1:00"}, "")
	if err != nil {
		t.Fatalf("show window: %v", err)
	}
	requireContains(t, out, "second line")
	requireContains(t, out, "1 of 3 entries")
	if strings.Contains(out, "first line") || strings.Contains(out, "third line") {
		t.Fatalf("expected only the windowed entry, got %q", out)
	}
}

func TestShowEmptyWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.srt")
	testsupport.WriteText(t, path, showFixture)

	out, _, err := runCLI(t, []string{"show", path, "--ss", "20", "--to", "30"}, "")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, "No subtitle entries")
	requireContains(t, out, "(3 in file)")
}

func TestShowMissingFile(t *testing.T) {
	_, _, err := runCLI(t, []string{"show", filepath.Join(t.TempDir(), "absent.srt")}, "")
	if !errors.Is(err, services.ErrInputNotFound) {
		t.Fatalf("expected input-not-found error, got %v", err)
	}
}

func TestShowInvalidWindow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "movie.srt")
	testsupport.WriteText(t, path, showFixture)

	_, _, err := runCLI(t, []string{"show", path, "--ss", "10", "--to", "5"}, "")
	if !errors.Is(err, services.ErrInvalidWindow) {
		t.Fatalf("expected invalid window error, got %v", err)
	}
}
