package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"plexbanner/internal/backup"
	"plexbanner/internal/banner"
	"plexbanner/internal/config"
	"plexbanner/internal/imagehash"
	"plexbanner/internal/logging"
	"plexbanner/internal/mediainfo"
	"plexbanner/internal/pipeline"
	"plexbanner/internal/services"
	"plexbanner/internal/services/plex"
	"plexbanner/internal/store"
	"plexbanner/internal/testsupport"
)

type fakeServer struct {
	mu        sync.Mutex
	items     map[string]plex.Item
	posters   map[string]image.Image
	uploads   map[string]int
	labels    map[string][]string
	posterErr error
	library   map[plex.ItemType][]plex.Item
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		items:   map[string]plex.Item{},
		posters: map[string]image.Image{},
		uploads: map[string]int{},
		labels:  map[string][]string{},
		library: map[plex.ItemType][]plex.Item{},
	}
}

func (f *fakeServer) add(item plex.Item, poster image.Image) {
	f.items[item.RatingKey] = item
	f.posters[item.RatingKey] = poster
}

func (f *fakeServer) Item(_ context.Context, key string) (plex.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[key]
	if !ok {
		return plex.Item{}, services.Wrap(services.ErrNotFound, "plex", "item", "no metadata for "+key, nil)
	}
	return item, nil
}

func (f *fakeServer) Poster(_ context.Context, item plex.Item, _ image.Point) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.posterErr != nil {
		return nil, f.posterErr
	}
	return f.posters[item.RatingKey], nil
}

func (f *fakeServer) UploadPoster(_ context.Context, key string, png []byte) error {
	img, err := imagehash.DecodeBytes(png)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads[key]++
	f.posters[key] = img
	return nil
}

func (f *fakeServer) AddLabel(_ context.Context, key string, _ plex.ItemType, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.labels[key] = append(f.labels[key], label)
	return nil
}

func (f *fakeServer) LibraryItems(_ context.Context, _ string, kind plex.ItemType) ([]plex.Item, error) {
	return f.library[kind], nil
}

func uhdMovie(key string) plex.Item {
	return plex.Item{
		RatingKey:       key,
		GUID:            "plex://movie/" + key,
		Type:            plex.TypeMovie,
		Title:           "Film " + key,
		Thumb:           "/thumb/" + key,
		VideoResolution: "4k",
		Size:            1000,
		Streams: []mediainfo.PlexStream{
			{StreamType: mediainfo.PlexStreamVideo, DOVIPresent: true},
			{StreamType: mediainfo.PlexStreamAudio, DisplayTitle: "TrueHD 7.1 Atmos"},
		},
		Labels: []string{"Dolby Vision"},
	}
}

func grayPoster() image.Image {
	return testsupport.SolidImage(200, 300, color.Gray{Y: 128})
}

type harness struct {
	cfg    *config.Config
	server *fakeServer
	store  *store.Store
	proc   *pipeline.Processor
}

func newHarness(t *testing.T, opts ...pipeline.Option) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	server := newFakeServer()
	refs := banner.NewReferenceSet(testsupport.AssetFS(t), nil)
	return &harness{
		cfg:    cfg,
		server: server,
		store:  st,
		proc:   pipeline.New(cfg, server, st, refs, logging.NewNop(), opts...),
	}
}

func TestProcessAddsBannersAndRecordsItem(t *testing.T) {
	h := newHarness(t)
	h.server.add(uhdMovie("1"), grayPoster())
	ctx := context.Background()

	report, err := h.proc.Process(ctx, "1")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Status != pipeline.StatusUpdated {
		t.Fatalf("status = %s", report.Status)
	}
	wantKinds := []banner.Kind{banner.KindResolution, banner.KindAudio, banner.KindHDR}
	if fmt.Sprint(report.Actions) != fmt.Sprint(wantKinds) {
		t.Fatalf("actions = %v, want %v", report.Actions, wantKinds)
	}
	if h.server.uploads["1"] != 1 {
		t.Fatalf("uploads = %d", h.server.uploads["1"])
	}
	if got := h.server.labels["1"]; len(got) != 1 || got[0] != string(banner.LabelDolbyAtmos) {
		t.Fatalf("labels added = %v; existing Dolby Vision label must not be re-added", got)
	}

	record, err := h.store.GetByGUID(ctx, "plex://movie/1")
	if err != nil || record == nil {
		t.Fatalf("GetByGUID: %+v, %v", record, err)
	}
	if !record.Checked || record.HDR != banner.HDRDolbyVision || record.Resolution != banner.Resolution4K || record.FileSize != 1000 {
		t.Fatalf("unexpected record %+v", record)
	}
	if report.Backup != backup.SourceFetched {
		t.Fatalf("backup source = %s", report.Backup)
	}
	for _, path := range []string{record.BackupPath, record.BanneredPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected file %q: %v", path, err)
		}
	}

	second, err := h.proc.Process(ctx, "1")
	if err != nil {
		t.Fatalf("second Process: %v", err)
	}
	if second.Status != pipeline.StatusUnchanged || h.server.uploads["1"] != 1 {
		t.Fatalf("second run should be a no-op: %s, uploads=%d", second.Status, h.server.uploads["1"])
	}
}

func TestProcessWithNothingToAdd(t *testing.T) {
	h := newHarness(t)
	item := uhdMovie("2")
	item.VideoResolution = "1080"
	item.Streams = []mediainfo.PlexStream{{StreamType: mediainfo.PlexStreamVideo}}
	item.Labels = nil
	h.server.add(item, grayPoster())

	report, err := h.proc.Process(context.Background(), "2")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Status != pipeline.StatusUnchanged || len(report.Actions) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if h.server.uploads["2"] != 0 || len(h.server.labels["2"]) != 0 {
		t.Fatalf("expected no writes, got uploads=%d labels=%v", h.server.uploads["2"], h.server.labels["2"])
	}
	record, _ := h.store.GetByGUID(context.Background(), "plex://movie/2")
	if record == nil || !record.Checked {
		t.Fatalf("record not saved: %+v", record)
	}
}

func TestProcessSkipsUnsupportedItems(t *testing.T) {
	h := newHarness(t)
	h.server.add(plex.Item{RatingKey: "3", GUID: "plex://show/3", Type: plex.TypeShow}, grayPoster())

	report, err := h.proc.Process(context.Background(), "3")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if report.Status != pipeline.StatusSkipped {
		t.Fatalf("status = %s", report.Status)
	}

	report, err = h.proc.Process(context.Background(), "missing")
	if !errors.Is(err, services.ErrNotFound) || report.Status != pipeline.StatusSkipped {
		t.Fatalf("missing item: %s, %v", report.Status, err)
	}
}

func TestProcessRecordsTransientFailure(t *testing.T) {
	h := newHarness(t)
	h.server.add(uhdMovie("4"), grayPoster())
	ctx := context.Background()
	if _, err := h.proc.Process(ctx, "4"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	h.server.posterErr = services.Wrap(services.ErrTransient, "plex", "poster", "", errors.New("connection reset"))
	report, err := h.proc.Process(ctx, "4")
	if err == nil || report.Status != pipeline.StatusFailed {
		t.Fatalf("expected failure, got %s, %v", report.Status, err)
	}
	record, _ := h.store.GetByGUID(ctx, "plex://movie/4")
	if record.Checked || record.LastError == "" {
		t.Fatalf("failure not recorded: %+v", record)
	}
}

func TestProcessRestoresUnreadablePoster(t *testing.T) {
	h := newHarness(t)
	h.server.add(uhdMovie("5"), grayPoster())
	ctx := context.Background()
	if _, err := h.proc.Process(ctx, "5"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	h.server.posterErr = fmt.Errorf("poster for 5: %w", imagehash.ErrImageDecode)
	report, err := h.proc.Process(ctx, "5")
	if err != nil {
		t.Fatalf("Process with corrupt poster: %v", err)
	}
	if report.Status != pipeline.StatusRestored || h.server.uploads["5"] != 2 {
		t.Fatalf("expected restore upload: %s, uploads=%d", report.Status, h.server.uploads["5"])
	}
	record, _ := h.store.GetByGUID(ctx, "plex://movie/5")
	if record.Checked || record.BanneredPath != "" {
		t.Fatalf("restored record should be unchecked: %+v", record)
	}
}

func TestRestore(t *testing.T) {
	h := newHarness(t)
	h.server.add(uhdMovie("6"), grayPoster())
	ctx := context.Background()
	if _, err := h.proc.Process(ctx, "6"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	report, err := h.proc.Restore(ctx, "6")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if report.Status != pipeline.StatusRestored {
		t.Fatalf("status = %s", report.Status)
	}
	whole, _ := banner.WholePoster(banner.ClassFilmWide)
	if whole.HasChanged(h.server.posters["6"], grayPoster(), 0) {
		t.Fatal("restored poster differs from the original")
	}

	h.server.add(uhdMovie("7"), grayPoster())
	if _, err := h.proc.Restore(ctx, "7"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unprocessed item, got %v", err)
	}
}

func TestProcessUsesProber(t *testing.T) {
	probe := fakeProber{result: mediainfo.Result{Streams: []mediainfo.Stream{
		{CodecType: "video", Width: 3840, Height: 2160, ColorTransfer: "smpte2084"},
		{CodecType: "audio", Profile: "DTS-HD MA + DTS:X"},
	}}}
	h := newHarness(t, pipeline.WithProber(&probe))
	h.cfg.Plex.PathPrefix = "/data"
	h.cfg.Plex.LocalPrefix = "/mnt/media"
	item := uhdMovie("8")
	item.File = "/data/films/Film.mkv"
	item.Streams = nil
	item.Labels = nil
	h.server.add(item, grayPoster())

	report, err := h.proc.Process(context.Background(), "8")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if probe.path != "/mnt/media/films/Film.mkv" {
		t.Fatalf("probed %q", probe.path)
	}
	if fmt.Sprint(report.Labels) != fmt.Sprint([]banner.Label{banner.LabelHDR, banner.LabelDTSX}) {
		t.Fatalf("labels = %v", report.Labels)
	}
}

type fakeProber struct {
	result mediainfo.Result
	path   string
}

func (f *fakeProber) Probe(_ context.Context, path string) (mediainfo.Result, error) {
	f.path = path
	return f.result, nil
}

func TestRunClassifiesAndLocks(t *testing.T) {
	h := newHarness(t)
	h.server.add(uhdMovie("1"), grayPoster())
	h.server.add(plex.Item{RatingKey: "2", GUID: "plex://show/2", Type: plex.TypeShow}, grayPoster())
	ctx := context.Background()

	summary, err := h.proc.Run(ctx, []string{"1", "2", "404"}, h.proc.Process)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.RunID == "" || len(summary.Reports) != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Count(pipeline.StatusUpdated) != 1 || summary.Count(pipeline.StatusSkipped) != 2 {
		t.Fatalf("counts: updated=%d skipped=%d", summary.Count(pipeline.StatusUpdated), summary.Count(pipeline.StatusSkipped))
	}

	held := flock.New(h.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()
	if _, err := h.proc.Run(ctx, []string{"1"}, h.proc.Process); !errors.Is(err, pipeline.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	h.server.add(uhdMovie("1"), grayPoster())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := h.proc.Run(ctx, []string{"1"}, h.proc.Process)
	if !errors.Is(err, context.Canceled) || len(summary.Reports) != 0 {
		t.Fatalf("expected cancellation, got %v with %d reports", err, len(summary.Reports))
	}
}

func TestLibraryKeys(t *testing.T) {
	h := newHarness(t)
	h.server.library[plex.TypeMovie] = []plex.Item{{RatingKey: "1"}, {RatingKey: "2"}, {RatingKey: "1"}}
	h.server.library[plex.TypeEpisode] = []plex.Item{{RatingKey: "10"}}
	h.server.library[plex.TypeSeason] = []plex.Item{{RatingKey: "20"}, {RatingKey: ""}}

	keys, err := h.proc.LibraryKeys(context.Background(), true, true)
	if err != nil {
		t.Fatalf("LibraryKeys: %v", err)
	}
	if fmt.Sprint(keys) != "[1 2 10 20]" {
		t.Fatalf("keys = %v", keys)
	}
	keys, _ = h.proc.LibraryKeys(context.Background(), false, true)
	if fmt.Sprint(keys) != "[10 20]" {
		t.Fatalf("tv keys = %v", keys)
	}
}

func TestFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Banners.Films4K = false
	cfg.Banners.TV4K = true
	cfg.Banners.Mini4K = true
	if pipeline.Flags(&cfg, banner.ClassFilmWide).FourKPosters {
		t.Fatal("films use films_4k")
	}
	for _, class := range []banner.Class{banner.ClassTVEpisode, banner.ClassTVSeason} {
		if !pipeline.Flags(&cfg, class).FourKPosters {
			t.Fatalf("%s uses tv_4k", class)
		}
	}
	flags := pipeline.Flags(&cfg, banner.ClassFilmWide)
	if !flags.PreferMini || !flags.AudioPosters || !flags.HDRPosters {
		t.Fatalf("unexpected flags %+v", flags)
	}
}

const probeJSON = `{"streams":[
  {"index":0,"codec_type":"video","codec_name":"hevc","width":3840,"height":2160,"color_transfer":"smpte2084"},
  {"index":1,"codec_type":"audio","codec_name":"dts","profile":"DTS-HD MA + DTS:X"}
],"format":{"filename":"Heat.mkv"}}`

func TestProcessProbesFilesAndPrefersSidecar(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stub")
	}
	cfg := testsupport.NewConfig(t,
		testsupport.WithStubbedFFprobe(probeJSON),
		testsupport.WithBanners(config.Banners{HDR: true, Films4K: true}),
	)
	mediaRoot := filepath.Join(testsupport.BaseDir(cfg), "media")
	cfg.Plex.PathPrefix = "/data"
	cfg.Plex.LocalPrefix = mediaRoot
	testsupport.WritePNG(t, filepath.Join(mediaRoot, "Heat", backup.SidecarName), testsupport.SolidImage(200, 300, color.Gray{Y: 40}))

	st := testsupport.MustOpenStore(t, cfg)
	server := newFakeServer()
	proc := pipeline.New(cfg, server, st, banner.NewReferenceSet(testsupport.AssetFS(t), nil), logging.NewNop())

	item := uhdMovie("9")
	item.File = "/data/Heat/Heat.mkv"
	item.VideoResolution = "1080"
	item.Streams = nil
	item.Labels = nil
	server.add(item, grayPoster())

	report, err := proc.Process(context.Background(), "9")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Backup != backup.SourceSidecar {
		t.Fatalf("backup source = %s", report.Backup)
	}
	if fmt.Sprint(report.Actions) != fmt.Sprint([]banner.Kind{banner.KindResolution, banner.KindHDR}) {
		t.Fatalf("actions = %v; audio banners are disabled", report.Actions)
	}
	if fmt.Sprint(server.labels["9"]) != fmt.Sprint([]string{"HDR", "DTS:X"}) {
		t.Fatalf("labels = %v", server.labels["9"])
	}
	record, _ := st.GetByGUID(context.Background(), item.GUID)
	if record.BanneredPath != "" || record.Resolution != banner.Resolution4K {
		t.Fatalf("unexpected record %+v", record)
	}
}

func uhdEpisode(key string) plex.Item {
	return plex.Item{
		RatingKey:       key,
		GUID:            "plex://episode/" + key,
		Type:            plex.TypeEpisode,
		Title:           "Pilot",
		ShowTitle:       "Show",
		Season:          1,
		Episode:         1,
		Thumb:           "/thumb/" + key,
		VideoResolution: "4k",
		Size:            2000,
	}
}

func TestProcessBlursUnwatchedEpisodeUntilWatched(t *testing.T) {
	h := newHarness(t)
	h.cfg.Banners.Spoilers = true
	ep := uhdEpisode("20")
	h.server.add(ep, testsupport.HalfImage(1280, 720))
	ctx := context.Background()

	report, err := h.proc.Process(ctx, "20")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Status != pipeline.StatusUpdated || !report.Blurred {
		t.Fatalf("expected blurred upload, got %+v", report)
	}
	if edge := redAt(h.server.posters["20"], 640, 360); edge == 0 || edge == 255 {
		t.Fatalf("uploaded poster is not blurred: edge red = %d", edge)
	}
	record, _ := h.store.GetByGUID(ctx, ep.GUID)
	if record == nil || !record.Blurred || !record.Checked || record.BanneredPath != "" {
		t.Fatalf("unexpected record %+v", record)
	}
	original, err := backup.LoadOriginal(record.BackupPath)
	if err != nil {
		t.Fatalf("LoadOriginal: %v", err)
	}
	if redAt(original, 600, 360) != 255 {
		t.Fatal("backup must keep the sharp original")
	}

	again, err := h.proc.Process(ctx, "20")
	if err != nil || again.Status != pipeline.StatusUnchanged || h.server.uploads["20"] != 1 {
		t.Fatalf("blurred poster should be left alone: %s, uploads=%d, %v", again.Status, h.server.uploads["20"], err)
	}

	ep.ViewCount = 1
	h.server.items["20"] = ep
	watched, err := h.proc.Process(ctx, "20")
	if err != nil {
		t.Fatalf("Process watched: %v", err)
	}
	if watched.Status != pipeline.StatusUpdated || watched.Blurred || watched.Backup != backup.SourceExisting {
		t.Fatalf("expected clean re-upload from backup, got %+v", watched)
	}
	wantKinds := []banner.Kind{banner.KindBackdrop, banner.KindResolution}
	if fmt.Sprint(watched.Actions) != fmt.Sprint(wantKinds) {
		t.Fatalf("actions = %v, want %v", watched.Actions, wantKinds)
	}
	if redAt(h.server.posters["20"], 600, 360) != 255 || redAt(h.server.posters["20"], 680, 360) != 0 {
		t.Fatal("watched episode should show the sharp poster")
	}
	record, _ = h.store.GetByGUID(ctx, ep.GUID)
	if record.Blurred || h.server.uploads["20"] != 2 {
		t.Fatalf("unexpected record after unblur %+v, uploads=%d", record, h.server.uploads["20"])
	}

	final, err := h.proc.Process(ctx, "20")
	if err != nil || final.Status != pipeline.StatusUnchanged {
		t.Fatalf("unblurred poster should be stable: %s, %v", final.Status, err)
	}
}

func TestProcessLeavesWatchedEpisodeSharp(t *testing.T) {
	h := newHarness(t)
	h.cfg.Banners.Spoilers = true
	ep := uhdEpisode("21")
	ep.ViewCount = 2
	h.server.add(ep, testsupport.HalfImage(1280, 720))

	report, err := h.proc.Process(context.Background(), "21")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Blurred || redAt(h.server.posters["21"], 600, 360) != 255 {
		t.Fatalf("watched episode must not be blurred: %+v", report)
	}
}

func redAt(img image.Image, x, y int) uint32 {
	r, _, _, _ := img.At(x, y).RGBA()
	return r >> 8
}

func TestProcessUploadsEpisodeWhoseBackdropCoversArtwork(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	server := newFakeServer()
	assets := testsupport.AssetFS(t)
	// Opaque panel inside the episode comparison quadrant (640,360)-(1280,720).
	backdrop := image.NewNRGBA(image.Rect(0, 0, 1280, 720))
	draw.Draw(backdrop, image.Rect(640, 360, 960, 720), image.NewUniform(color.White), image.Point{}, draw.Src)
	assets[string(banner.TemplateTVBackdrop)].Data = testsupport.PNGBytes(t, backdrop)
	proc := pipeline.New(cfg, server, st, banner.NewReferenceSet(assets, nil), logging.NewNop())
	server.add(uhdEpisode("22"), testsupport.HalfImage(1280, 720))

	report, err := proc.Process(context.Background(), "22")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.Status != pipeline.StatusUpdated || server.uploads["22"] != 1 {
		t.Fatalf("episode upload refused: %+v", report)
	}
	if redAt(server.posters["22"], 800, 500) != 255 || redAt(server.posters["22"], 1100, 500) != 0 {
		t.Fatal("backdrop panel missing from the uploaded poster")
	}
}
