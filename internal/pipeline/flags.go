package pipeline

import (
	"os"

	"plexbanner/internal/banner"
	"plexbanner/internal/config"
)

// Flags maps banner toggles onto decision flags for class. TV classes use
// the TV 4K toggle; everything else the film one.
func Flags(cfg *config.Config, class banner.Class) banner.Flags {
	fourK := cfg.Banners.Films4K
	if class == banner.ClassTVEpisode || class == banner.ClassTVSeason {
		fourK = cfg.Banners.TV4K
	}
	return banner.Flags{
		AudioPosters:           cfg.Banners.Audio,
		HDRPosters:             cfg.Banners.HDR,
		FourKPosters:           fourK,
		PreferMini:             cfg.Banners.Mini4K,
		BackupOnDetectNoBanner: cfg.Banners.BackupOnNoBanner,
		ThreeDPosters:          cfg.Banners.Posters3D,
		PreferMini3D:           cfg.Banners.Mini3D,
	}
}

// NewReferenceSet loads templates from the configured asset directory with
// any configured cutoff overrides applied.
func NewReferenceSet(cfg *config.Config) *banner.ReferenceSet {
	catalog := banner.DefaultCatalog().WithCutoffs(cfg.Detection.FilmCutoff, cfg.Detection.TVCutoff)
	return banner.NewReferenceSet(os.DirFS(cfg.Paths.AssetDir), catalog)
}
