package banner

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"sync"

	"plexbanner/internal/imagehash"
)

// ErrAssetMissing indicates a template that could not be opened or decoded.
var ErrAssetMissing = errors.New("banner asset missing")

// AssetError names the template behind an ErrAssetMissing failure.
type AssetError struct {
	Template Template
	Err      error
}

func (e *AssetError) Error() string {
	return fmt.Sprintf("asset %s: %v", e.Template, e.Err)
}

func (e *AssetError) Unwrap() []error {
	return []error{ErrAssetMissing, e.Err}
}

// Reference is a detection template and its precomputed hash.
type Reference struct {
	Template Template
	Hash     imagehash.Hash
}

// References maps each region to the templates that loaded for it.
type References map[RegionName][]Reference

type classEntry struct {
	once sync.Once
	refs References
	err  error
}

type overlayEntry struct {
	once sync.Once
	img  image.Image
	err  error
}

// ReferenceSet is a load-once cache of detection references and overlay
// banners. It is safe for concurrent use; loaded values are shared read-only.
type ReferenceSet struct {
	fsys    fs.FS
	catalog Catalog

	mu       sync.Mutex
	classes  map[Class]*classEntry
	overlays map[Template]*overlayEntry
}

// NewReferenceSet reads templates from fsys. A nil catalog selects
// DefaultCatalog.
func NewReferenceSet(fsys fs.FS, catalog Catalog) *ReferenceSet {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &ReferenceSet{
		fsys:     fsys,
		catalog:  catalog,
		classes:  make(map[Class]*classEntry),
		overlays: make(map[Template]*overlayEntry),
	}
}

// Catalog returns the class definitions the set was built with.
func (s *ReferenceSet) Catalog() Catalog {
	return s.catalog
}

// Spec returns the class spec for class.
func (s *ReferenceSet) Spec(class Class) (Spec, error) {
	return s.catalog.Spec(class)
}

// Load returns the references for class, hashing templates on first use. On
// failure the returned map still holds every reference that loaded and the
// error joins one AssetError per failed template. The map must not be
// modified.
func (s *ReferenceSet) Load(class Class) (References, error) {
	spec, err := s.catalog.Spec(class)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	entry, ok := s.classes[class]
	if !ok {
		entry = &classEntry{}
		s.classes[class] = entry
	}
	s.mu.Unlock()

	entry.once.Do(func() {
		entry.refs, entry.err = s.loadClass(spec)
	})
	return entry.refs, entry.err
}

func (s *ReferenceSet) loadClass(spec Spec) (References, error) {
	hashes := make(map[Template]imagehash.Hash)
	var errs []error
	for _, tmpl := range spec.Templates() {
		img, err := s.decode(tmpl)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		hashes[tmpl] = imagehash.Average(img)
	}

	refs := make(References, len(spec.Regions))
	for _, region := range spec.Regions {
		for _, tmpl := range region.References {
			if h, ok := hashes[tmpl]; ok {
				refs[region.Name] = append(refs[region.Name], Reference{Template: tmpl, Hash: h})
			}
		}
	}
	return refs, errors.Join(errs...)
}

// Overlay returns the decoded overlay banner for tmpl.
func (s *ReferenceSet) Overlay(tmpl Template) (image.Image, error) {
	if tmpl == "" {
		return nil, &AssetError{Template: tmpl, Err: errors.New("no overlay configured")}
	}
	s.mu.Lock()
	entry, ok := s.overlays[tmpl]
	if !ok {
		entry = &overlayEntry{}
		s.overlays[tmpl] = entry
	}
	s.mu.Unlock()

	entry.once.Do(func() {
		entry.img, entry.err = s.decode(tmpl)
	})
	return entry.img, entry.err
}

func (s *ReferenceSet) decode(tmpl Template) (image.Image, error) {
	if s.fsys == nil {
		return nil, &AssetError{Template: tmpl, Err: fs.ErrNotExist}
	}
	file, err := s.fsys.Open(string(tmpl))
	if err != nil {
		return nil, &AssetError{Template: tmpl, Err: err}
	}
	defer file.Close()
	img, err := imagehash.Decode(file)
	if err != nil {
		return nil, &AssetError{Template: tmpl, Err: err}
	}
	return img, nil
}
