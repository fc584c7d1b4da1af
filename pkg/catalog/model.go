package catalog

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/agentpkg/assetgraph/pkg/filetype"
)

// Kind describes how an asset's files are laid out.
type Kind int

const (
	// KindPackage is a regular package whose files reference each other
	// through identifiers.
	KindPackage Kind = iota
	// KindDirectory is a flat directory of loose files. Dependencies are the
	// files co-located with the root; nothing is scanned.
	KindDirectory
	// KindSingleFile is an asset made of exactly one file.
	KindSingleFile
)

var kindNames = map[Kind]string{
	KindPackage:    "package",
	KindDirectory:  "directory",
	KindSingleFile: "file",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	s := strings.ToLower(string(text))
	if s == "" {
		*k = KindPackage
		return nil
	}
	for kind, name := range kindNames {
		if name == s {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown asset kind %q", s)
}

// Profile is a target technology profile. Variant packages carry files that
// replace the original package's files when their profile is active.
type Profile int

const (
	ProfileNone Profile = iota
	ProfileUniversal
	ProfileHighDefinition
)

// ParseProfile accepts the long names used in settings as well as the short
// keys package names usually carry.
func ParseProfile(s string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ProfileNone, nil
	case "universal", "urp":
		return ProfileUniversal, nil
	case "high-definition", "hdrp":
		return ProfileHighDefinition, nil
	default:
		return ProfileNone, fmt.Errorf("unknown profile %q (expected universal or high-definition)", s)
	}
}

func (p Profile) String() string {
	switch p {
	case ProfileUniversal:
		return "universal"
	case ProfileHighDefinition:
		return "high-definition"
	default:
		return "none"
	}
}

// Key is the short token a package name carries when it targets the profile.
func (p Profile) Key() string {
	switch p {
	case ProfileUniversal:
		return "urp"
	case ProfileHighDefinition:
		return "hdrp"
	default:
		return ""
	}
}

// DependencyState is the lifecycle of one resolution run.
type DependencyState int

const (
	Calculating DependencyState = iota
	Done
	Failed
	Partial
	NotPossible
)

var stateNames = []string{"calculating", "done", "failed", "partial", "not-possible"}

func (s DependencyState) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

func (s DependencyState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *DependencyState) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = DependencyState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown dependency state %q", text)
}

// Terminal reports whether no further progress is made in this state.
func (s DependencyState) Terminal() bool {
	return s != Calculating
}

// Asset is a cataloged package-level entry.
type Asset struct {
	ID       int64  `toml:"id" json:"id"`
	ParentID int64  `toml:"parent,omitempty" json:"parent,omitempty"`
	Kind     Kind   `toml:"kind,omitempty" json:"kind,omitempty"`
	Name     string `toml:"name" json:"name"`
	Version  string `toml:"version,omitempty" json:"version,omitempty"`
	// Identifier is in the same space as file identifiers; the asset's root
	// file carries the same one.
	Identifier string `toml:"identifier,omitempty" json:"identifier,omitempty"`
	// Location tells a Materializer where the content lives (directory,
	// archive path or URL).
	Location string `toml:"location,omitempty" json:"location,omitempty"`

	SupportsUniversal      bool   `toml:"universal,omitempty" json:"universal,omitempty"`
	SupportsHighDefinition bool   `toml:"high-definition,omitempty" json:"high-definition,omitempty"`
	ProfileVersion         string `toml:"profile-version,omitempty" json:"profile-version,omitempty"`

	// Dependencies is written by the resolver.
	Dependencies Dependencies `toml:"-" json:"-"`
}

// Supports reports whether the asset's compatibility flag for p is set.
func (a Asset) Supports(p Profile) bool {
	switch p {
	case ProfileUniversal:
		return a.SupportsUniversal
	case ProfileHighDefinition:
		return a.SupportsHighDefinition
	default:
		return false
	}
}

// AssetFile is one file inside an Asset.
type AssetFile struct {
	ID         int64         `toml:"id,omitempty" json:"id,omitempty"`
	AssetID    int64         `toml:"-" json:"-"`
	Identifier string        `toml:"identifier,omitempty" json:"identifier,omitempty"`
	Path       string        `toml:"path" json:"path"`
	FileName   string        `toml:"-" json:"-"`
	Type       filetype.Type `toml:"type,omitempty" json:"type,omitempty"`
	Size       int64         `toml:"size,omitempty" json:"size,omitempty"`
}

// Key identifies the file in a visited set: its identifier, or the owning
// asset and path for files that have none.
func (f AssetFile) Key() string {
	if f.Identifier != "" {
		return f.Identifier
	}
	return strconv.FormatInt(f.AssetID, 10) + ":" + f.Path
}

// Dir is the slash separated directory holding the file.
func (f AssetFile) Dir() string {
	return path.Dir(f.Path)
}

// Sidecar returns the metadata file stored next to f. It shares f's
// identifier and owner.
func (f AssetFile) Sidecar() AssetFile {
	return AssetFile{
		AssetID:    f.AssetID,
		Identifier: f.Identifier,
		Path:       f.Path + filetype.SidecarExt,
		FileName:   f.FileName + filetype.SidecarExt,
		Type:       filetype.Meta,
	}
}

// Dependencies is the outcome of one resolution run, stored on the analyzed
// asset.
type Dependencies struct {
	State DependencyState
	// Files holds every distinct dependency sorted by asset id, path, type.
	Files []AssetFile
	// CrossPackage lists packages other than the root's own that own a
	// resolved reference.
	CrossPackage []Asset
	Size         int64
	Media        []AssetFile
	Scripts      []AssetFile
	// Unresolved lists identifiers that no cataloged file carries.
	Unresolved  []string
	VariantUsed bool
	Variant     *Asset
	// Err is set when the root file could not be read.
	Err error
}
