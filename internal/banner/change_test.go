package banner_test

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"plexbanner/internal/banner"
	"plexbanner/internal/imagehash"
)

func TestHasChanged(t *testing.T) {
	detector, err := banner.WholePoster(banner.ClassTVEpisode)
	if err != nil {
		t.Fatalf("WholePoster: %v", err)
	}
	a := patternImage(leftWhite, 320, 180)
	b := patternImage(rightWhite, 320, 180)

	if detector.HasChanged(a, a, 0) {
		t.Fatal("identical posters reported as changed")
	}
	if !detector.HasChanged(a, nil, 64) {
		t.Fatal("nil reference must count as changed")
	}
	if !detector.HasChanged(a, b, 10) {
		t.Fatal("different posters reported as unchanged")
	}
	if detector.HasChanged(a, b, 64) {
		t.Fatal("cutoff 64 should accept any pair")
	}
	if dist, err := detector.Distance(a, b); err != nil || dist != 64 {
		t.Fatalf("Distance = %d, %v; want 64", dist, err)
	}
}

func TestArtworkRegionIgnoresBanners(t *testing.T) {
	detector, err := banner.ArtworkRegion(banner.ClassFilmWide)
	if err != nil {
		t.Fatalf("ArtworkRegion: %v", err)
	}
	original := patternImage(checker, 2000, 3000)
	paint(original, image.Rect(1000, 1500, 2000, 3000), leftWhite)
	bannered := banner.Composite(original, patternImage(leftWhite, 2000, 220), filmSize, image.Point{})
	if detector.HasChanged(bannered, original, 0) {
		t.Fatal("banner in the top band must not count as an artwork change")
	}
	if !banner.VerifyComposite(bannered, original, banner.ClassFilmWide) {
		t.Fatal("VerifyComposite rejected a clean composite")
	}

	corrupted := banner.Composite(original, patternImage(rightWhite, 2000, 3000), filmSize, image.Point{})
	if banner.VerifyComposite(corrupted, original, banner.ClassFilmWide) {
		t.Fatal("VerifyComposite accepted a composite that replaced the artwork")
	}
}

func TestHasChangedFile(t *testing.T) {
	dir := t.TempDir()
	candidate := filepath.Join(dir, "candidate.png")
	reference := filepath.Join(dir, "reference.png")
	if err := imagehash.SavePNG(candidate, patternImage(topWhite, 64, 96)); err != nil {
		t.Fatalf("save candidate: %v", err)
	}
	if err := imagehash.SavePNG(reference, patternImage(topWhite, 128, 192)); err != nil {
		t.Fatalf("save reference: %v", err)
	}
	detector, err := banner.WholePoster(banner.ClassFilmWide)
	if err != nil {
		t.Fatalf("WholePoster: %v", err)
	}

	changed, err := detector.HasChangedFile(candidate, reference, 10)
	if err != nil || changed {
		t.Fatalf("same artwork at different sizes: changed=%v err=%v", changed, err)
	}

	changed, err = detector.HasChangedFile(candidate, filepath.Join(dir, "missing.png"), 10)
	if err != nil || !changed {
		t.Fatalf("missing reference: changed=%v err=%v", changed, err)
	}

	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("junk"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	changed, err = detector.HasChangedFile(candidate, corrupt, 10)
	if err != nil || !changed {
		t.Fatalf("corrupt reference: changed=%v err=%v", changed, err)
	}

	if _, err := detector.HasChangedFile(filepath.Join(dir, "absent.png"), reference, 10); err == nil {
		t.Fatal("expected error for unreadable candidate")
	}
}

func TestChangeDetectorUnknownClass(t *testing.T) {
	if _, err := banner.WholePoster("poster"); err == nil {
		t.Fatal("expected error for unknown class")
	}
	if banner.VerifyComposite(fill(4, 4, gray), fill(4, 4, gray), "poster") {
		t.Fatal("unknown class must fail verification")
	}
}
