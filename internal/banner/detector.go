package banner

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"plexbanner/internal/imagehash"
	"plexbanner/internal/logging"
)

// State is the detection outcome for one region.
type State int

const (
	StateAbsent State = iota
	StatePresent
	// StateUnknown marks regions that could not be evaluated. Decide treats
	// them as absent.
	StateUnknown
)

func (s State) String() string {
	switch s {
	case StatePresent:
		return "present"
	case StateUnknown:
		return "unknown"
	default:
		return "absent"
	}
}

// DetectionResult reports, per region, whether a banner was found.
type DetectionResult struct {
	Class   Class
	Regions map[RegionName]State
	// Distances holds the smallest reference distance per evaluated region.
	Distances map[RegionName]int
}

// State returns the state for region; regions not in the class are absent.
func (r DetectionResult) State(region RegionName) State {
	return r.Regions[region]
}

// Present reports whether region was positively matched.
func (r DetectionResult) Present(region RegionName) bool {
	return r.Regions[region] == StatePresent
}

// AnyPresent reports whether any region matched.
func (r DetectionResult) AnyPresent() bool {
	for _, state := range r.Regions {
		if state == StatePresent {
			return true
		}
	}
	return false
}

// Clean reports whether every region was evaluated and none matched.
func (r DetectionResult) Clean() bool {
	if len(r.Regions) == 0 {
		return false
	}
	for _, state := range r.Regions {
		if state != StateAbsent {
			return false
		}
	}
	return true
}

func unknownResult(spec Spec) DetectionResult {
	result := DetectionResult{
		Class:     spec.Class,
		Regions:   make(map[RegionName]State, len(spec.Regions)),
		Distances: make(map[RegionName]int, len(spec.Regions)),
	}
	for _, region := range spec.Regions {
		result.Regions[region.Name] = StateUnknown
	}
	return result
}

// Detector classifies poster regions against a ReferenceSet.
type Detector struct {
	refs   *ReferenceSet
	logger *slog.Logger
}

// NewDetector returns a detector backed by refs.
func NewDetector(refs *ReferenceSet, logger *slog.Logger) *Detector {
	return &Detector{refs: refs, logger: logging.NewComponentLogger(logger, "detector")}
}

// Detect normalizes poster to the class canonical size and evaluates every
// region. Only an unknown class or a nil poster is an error; template and
// region problems degrade the affected region to StateUnknown.
func (d *Detector) Detect(poster image.Image, class Class) (DetectionResult, error) {
	spec, err := d.refs.Spec(class)
	if err != nil {
		return DetectionResult{Class: class}, err
	}
	if poster == nil {
		return unknownResult(spec), fmt.Errorf("detect %s: %w: nil poster", class, imagehash.ErrImageDecode)
	}

	refs, loadErr := d.refs.Load(class)
	if loadErr != nil {
		logging.WarnWithContext(d.logger, "banner templates missing; affected regions unknown", "asset_missing",
			logging.String(logging.FieldClass, string(class)),
			logging.Error(loadErr),
			logging.String(logging.FieldErrorHint, "check paths.asset_dir contains the detection templates"),
			logging.String(logging.FieldImpact, "banners in affected regions may be added twice"),
		)
	}

	normalized := imagehash.Normalize(poster, spec.Size)
	result := DetectionResult{
		Class:     class,
		Regions:   make(map[RegionName]State, len(spec.Regions)),
		Distances: make(map[RegionName]int, len(spec.Regions)),
	}
	for _, region := range spec.Regions {
		result.Regions[region.Name] = d.evaluate(normalized, class, region, refs[region.Name], &result)
	}
	return result, nil
}

func (d *Detector) evaluate(poster image.Image, class Class, region Region, refs []Reference, result *DetectionResult) State {
	hash, err := imagehash.HashRegion(poster, region.Rect)
	if err != nil {
		logging.ErrorWithContext(d.logger, "detection region invalid", "region_invalid",
			logging.String(logging.FieldClass, string(class)),
			logging.String(logging.FieldRegion, string(region.Name)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "region rectangle must lie inside the canonical poster size"),
		)
		return StateUnknown
	}

	best := -1
	for _, ref := range refs {
		dist := hash.Distance(ref.Hash)
		if best < 0 || dist < best {
			best = dist
		}
	}
	if best >= 0 {
		result.Distances[region.Name] = best
	}
	switch {
	case best >= 0 && best <= region.Cutoff:
		d.logger.Debug("banner detected",
			logging.String(logging.FieldClass, string(class)),
			logging.String(logging.FieldRegion, string(region.Name)),
			logging.Int("distance", best),
		)
		return StatePresent
	case len(refs) < len(region.References):
		return StateUnknown
	default:
		return StateAbsent
	}
}

// DetectFile decodes the poster at path and detects banners. Undecodable
// files yield an all-unknown result and an error wrapping
// imagehash.ErrImageDecode.
func (d *Detector) DetectFile(path string, class Class) (DetectionResult, error) {
	spec, err := d.refs.Spec(class)
	if err != nil {
		return DetectionResult{Class: class}, err
	}
	img, err := imagehash.Load(path)
	if err != nil {
		if !errors.Is(err, imagehash.ErrImageDecode) {
			err = fmt.Errorf("%w: %w", imagehash.ErrImageDecode, err)
		}
		return unknownResult(spec), err
	}
	return d.Detect(img, class)
}
