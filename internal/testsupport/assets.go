package testsupport

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"plexbanner/internal/banner"
)

// AssetFS returns a template tree covering every class of the default
// catalog. Check templates carry a left-white/right-black split, so
// uniform poster regions never match them; overlays are small opaque
// white squares anchored at the origin.
func AssetFS(t testing.TB) fstest.MapFS {
	t.Helper()

	check := PNGBytes(t, splitImage(64, 64))
	overlay := PNGBytes(t, SolidImage(8, 8, color.White))

	fsys := fstest.MapFS{}
	for _, spec := range banner.DefaultCatalog() {
		for _, tmpl := range spec.Templates() {
			fsys[string(tmpl)] = &fstest.MapFile{Data: check}
		}
		o := spec.Overlays
		for _, tmpl := range []banner.Template{o.ResolutionWide, o.ResolutionMini, o.Atmos, o.DTSX, o.DolbyVision, o.HDR10Plus, o.HDR, o.ThreeDWide, o.ThreeDMini, o.Backdrop} {
			if tmpl != "" {
				fsys[string(tmpl)] = &fstest.MapFile{Data: overlay}
			}
		}
	}
	return fsys
}

func splitImage(w, h int) *image.NRGBA {
	img := SolidImage(w, h, color.Black)
	draw.Draw(img, image.Rect(0, 0, w/2, h), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

// WriteAssets materializes AssetFS under dir.
func WriteAssets(t testing.TB, dir string) {
	t.Helper()
	for name, file := range AssetFS(t) {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", path, err)
		}
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			t.Fatalf("write asset %s: %v", path, err)
		}
	}
}
