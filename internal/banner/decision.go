package banner

// Flags are the feature toggles that gate each banner kind.
type Flags struct {
	AudioPosters           bool
	HDRPosters             bool
	FourKPosters           bool
	PreferMini             bool
	BackupOnDetectNoBanner bool
	ThreeDPosters          bool
	PreferMini3D           bool
}

// Kind is the banner category an action adds.
type Kind string

const (
	KindBackdrop   Kind = "backdrop"
	KindResolution Kind = "resolution"
	KindAudio      Kind = "audio"
	KindHDR        Kind = "hdr"
	Kind3D         Kind = "3d"
)

// Action composites Template onto the poster; Region is the detection region
// the banner occupies.
type Action struct {
	Kind     Kind
	Template Template
	Region   RegionName
}

// Decision is the outcome of Decide.
type Decision struct {
	Actions []Action
	Labels  []Label
}

// Decide chooses banners for detection using the built-in class catalog.
// Unknown classes yield labels and no actions.
func Decide(detection DetectionResult, media MediaAttributes, flags Flags) Decision {
	spec, err := DefaultCatalog().Spec(detection.Class)
	if err != nil {
		return Decision{Labels: media.Labels()}
	}
	return spec.Decide(detection, media, flags)
}

// Decide chooses which banners to add to a poster of the class and which
// labels the item should carry. Actions are ordered resolution, audio, HDR;
// TV episodes get a backdrop action in front when anything is added to a
// poster with no detected banners. Labels depend only on media.
func (s Spec) Decide(detection DetectionResult, media MediaAttributes, flags Flags) Decision {
	decision := Decision{Labels: media.Labels()}

	var actions []Action
	if s.Class == ClassThreeD {
		if a, ok := decide3D(s, detection, media, flags); ok {
			actions = append(actions, a)
		}
	} else if a, ok := decideResolution(s, detection, media, flags); ok {
		actions = append(actions, a)
	}
	if a, ok := decideAudio(s, detection, media, flags); ok {
		actions = append(actions, a)
	}
	if a, ok := decideHDR(s, detection, media, flags); ok {
		actions = append(actions, a)
	}

	if s.Overlays.Backdrop != "" && len(actions) > 0 && !detection.AnyPresent() {
		backdrop := Action{Kind: KindBackdrop, Template: s.Overlays.Backdrop, Region: RegionBackdrop}
		actions = append([]Action{backdrop}, actions...)
	}
	decision.Actions = actions
	return decision
}

func anyPresent(detection DetectionResult, regions []RegionName) bool {
	for _, name := range regions {
		if detection.Present(name) {
			return true
		}
	}
	return false
}

func decideResolution(spec Spec, detection DetectionResult, media MediaAttributes, flags Flags) (Action, bool) {
	if media.Resolution != Resolution4K || !flags.FourKPosters || len(spec.ResolutionRegions) == 0 {
		return Action{}, false
	}
	if anyPresent(detection, spec.ResolutionRegions) {
		return Action{}, false
	}
	mini := (spec.ForceMini || flags.PreferMini) && spec.Overlays.ResolutionMini != ""
	if mini {
		return Action{Kind: KindResolution, Template: spec.Overlays.ResolutionMini, Region: RegionMini}, true
	}
	if spec.Overlays.ResolutionWide == "" {
		return Action{}, false
	}
	// Classes with a single resolution region target it whatever it is named.
	region := RegionWide
	if len(spec.ResolutionRegions) == 1 {
		region = spec.ResolutionRegions[0]
	}
	return Action{Kind: KindResolution, Template: spec.Overlays.ResolutionWide, Region: region}, true
}

func decide3D(spec Spec, detection DetectionResult, media MediaAttributes, flags Flags) (Action, bool) {
	if !media.ThreeD || !flags.ThreeDPosters || anyPresent(detection, spec.ThreeDRegions) {
		return Action{}, false
	}
	if flags.PreferMini3D && spec.Overlays.ThreeDMini != "" {
		return Action{Kind: Kind3D, Template: spec.Overlays.ThreeDMini, Region: RegionMini}, true
	}
	if spec.Overlays.ThreeDWide == "" {
		return Action{}, false
	}
	return Action{Kind: Kind3D, Template: spec.Overlays.ThreeDWide, Region: RegionWide}, true
}

func decideAudio(spec Spec, detection DetectionResult, media MediaAttributes, flags Flags) (Action, bool) {
	if spec.AudioRegion == "" || !flags.AudioPosters || detection.Present(spec.AudioRegion) {
		return Action{}, false
	}
	var tmpl Template
	switch media.Audio {
	case AudioDolbyAtmos:
		tmpl = spec.Overlays.Atmos
	case AudioDTSX:
		tmpl = spec.Overlays.DTSX
	}
	if tmpl == "" {
		return Action{}, false
	}
	return Action{Kind: KindAudio, Template: tmpl, Region: spec.AudioRegion}, true
}

func decideHDR(spec Spec, detection DetectionResult, media MediaAttributes, flags Flags) (Action, bool) {
	if spec.HDRRegion == "" || !flags.HDRPosters || detection.Present(spec.HDRRegion) {
		return Action{}, false
	}
	var tmpl Template
	switch media.HDR {
	case HDRDolbyVision:
		tmpl = spec.Overlays.DolbyVision
	case HDR10Plus:
		tmpl = spec.Overlays.HDR10Plus
	case HDR10:
		tmpl = spec.Overlays.HDR
	}
	if tmpl == "" {
		return Action{}, false
	}
	return Action{Kind: KindHDR, Template: tmpl, Region: spec.HDRRegion}, true
}
