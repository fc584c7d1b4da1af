package filetype

import (
	"fmt"
	"path"
	"strings"
)

// SidecarExt is the extension of the metadata file stored next to every
// cataloged file.
const SidecarExt = ".meta"

// Type is the declared type of an asset file, derived from its extension.
type Type int

const (
	Unknown Type = iota
	Prefab
	Scene
	ScriptableAsset
	Material
	AnimatorController
	AnimatorOverride
	Animation
	PhysicsMaterial
	TerrainLayer
	AudioMixer
	Timeline
	SpriteAtlas
	LightingSettings
	VisualEffect
	Shader
	ShaderInclude
	HLSLInclude
	ComputeShader
	ShaderGraph
	ShaderSubGraph
	Model
	MeshExchange
	Texture
	Audio
	Script
	Library
	Meta
)

// Behavior describes what the resolver has to do with a file of a type.
type Behavior uint16

const (
	// ScanContent marks types whose own content carries references.
	ScanContent Behavior = 1 << iota
	// ScanSidecar marks types whose .meta sidecar carries references.
	ScanSidecar
	// Normalize marks authored types that must be in text serialization
	// before they can be scanned.
	Normalize
	// ToleratedBinary marks normalizable types that may legitimately stay
	// binary; failing to normalize them is not fatal.
	ToleratedBinary
	// Graph marks node graph documents with escaped, nested references.
	Graph
	// Includable marks shader-like sources with #include and editor directives.
	Includable
	// Code marks script and binary library types.
	Code
	// EmbeddedNames marks binary containers that embed referenced file names.
	EmbeddedNames
)

type entry struct {
	exts     []string
	behavior Behavior
}

const authored = ScanContent | Normalize

var table = map[Type]entry{
	Unknown:            {},
	Prefab:             {exts: []string{"prefab"}, behavior: authored},
	Scene:              {exts: []string{"unity"}, behavior: authored},
	ScriptableAsset:    {exts: []string{"asset"}, behavior: authored | ToleratedBinary},
	Material:           {exts: []string{"mat"}, behavior: authored},
	AnimatorController: {exts: []string{"controller"}, behavior: authored},
	AnimatorOverride:   {exts: []string{"overridecontroller"}, behavior: authored},
	Animation:          {exts: []string{"anim"}, behavior: authored},
	PhysicsMaterial:    {exts: []string{"physicmaterial", "physicsmaterial2d"}, behavior: authored},
	TerrainLayer:       {exts: []string{"terrainlayer"}, behavior: authored},
	AudioMixer:         {exts: []string{"mixer"}, behavior: authored},
	Timeline:           {exts: []string{"playable"}, behavior: authored},
	SpriteAtlas:        {exts: []string{"spriteatlas"}, behavior: authored},
	LightingSettings:   {exts: []string{"lighting"}, behavior: authored},
	VisualEffect:       {exts: []string{"vfx"}, behavior: authored},
	Shader:             {exts: []string{"shader"}, behavior: ScanContent | ScanSidecar | Includable},
	ShaderInclude:      {exts: []string{"cginc"}, behavior: ScanContent | Includable},
	HLSLInclude:        {exts: []string{"hlsl"}, behavior: ScanContent | Includable},
	ComputeShader:      {exts: []string{"compute"}, behavior: ScanContent | Includable},
	ShaderGraph:        {exts: []string{"shadergraph"}, behavior: ScanContent | Graph},
	ShaderSubGraph:     {exts: []string{"shadersubgraph"}, behavior: ScanContent | Graph},
	Model:              {exts: []string{"fbx"}, behavior: ScanSidecar | EmbeddedNames},
	MeshExchange:       {exts: []string{"obj", "blend", "dae", "3ds", "max"}, behavior: ScanSidecar},
	Texture:            {exts: []string{"png", "jpg", "jpeg", "tga", "psd", "tif", "tiff", "exr", "hdr", "bmp", "gif"}},
	Audio:              {exts: []string{"wav", "mp3", "ogg", "aif", "aiff", "flac"}},
	Script:             {exts: []string{"cs"}, behavior: ScanSidecar | Code},
	Library:            {exts: []string{"dll"}, behavior: Code},
	Meta:               {exts: []string{"meta"}, behavior: ScanContent},
}

var byExt = func() map[string]Type {
	m := make(map[string]Type)
	for t, e := range table {
		for _, ext := range e.exts {
			m[ext] = t
		}
	}
	return m
}()

// Parse maps an extension (with or without the leading dot, any case) to
// its Type. Unrecognized extensions yield Unknown.
func Parse(ext string) Type {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	return byExt[ext]
}

// FromPath derives the Type from a slash separated file path.
func FromPath(p string) Type {
	return Parse(path.Ext(p))
}

// All returns every declared type in enum order.
func All() []Type {
	out := make([]Type, 0, len(table))
	for t := Unknown; t <= Meta; t++ {
		out = append(out, t)
	}
	return out
}

func (t Type) Behavior() Behavior {
	return table[t].behavior
}

func (t Type) Has(b Behavior) bool {
	return t.Behavior()&b == b
}

// Scannable reports whether the walker has anything to read for this type,
// either in the file itself or in its sidecar.
func (t Type) Scannable() bool {
	return t.Behavior()&(ScanContent|ScanSidecar) != 0
}

func (t Type) IsCode() bool {
	return t.Has(Code)
}

// Ext returns the canonical extension without the dot. Unknown returns "".
func (t Type) Ext() string {
	e := table[t]
	if len(e.exts) == 0 {
		return ""
	}
	return e.exts[0]
}

func (t Type) String() string {
	if t == Unknown {
		return "unknown"
	}
	return t.Ext()
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(text []byte) error {
	s := string(text)
	if s == "" || s == "unknown" {
		*t = Unknown
		return nil
	}
	parsed := Parse(s)
	if parsed == Unknown {
		return fmt.Errorf("unrecognized file type %q", s)
	}
	*t = parsed
	return nil
}
