package domain

import (
	"fmt"
	"strings"
)

// ModelID identifies one of the supported Whisper model variants.
type ModelID string

const (
	ModelTiny    ModelID = "tiny"
	ModelBase    ModelID = "base"
	ModelSmall   ModelID = "small"
	ModelMedium  ModelID = "medium"
	ModelLargeV3 ModelID = "large-v3"
)

// DefaultModel is used when neither flags nor config pick a model.
const DefaultModel = ModelBase

// ModelInfo is the static catalog entry for a model.
type ModelInfo struct {
	ID          ModelID
	DisplayName string
	Description string
	SizeBytes   int64  // approximate
	FileName    string // artifact name, also the remote file name
}

// ModelDescriptor is a model's catalog entry projected onto the current disk state.
// It is recomputed on every query and never persisted.
type ModelDescriptor struct {
	ID          ModelID `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SizeBytes   int64   `json:"size_bytes"`
	Available   bool    `json:"available"`
	LocalPath   string  `json:"local_path,omitempty"` // set only when Available
}

var catalog = []ModelInfo{
	{ID: ModelTiny, DisplayName: "Tiny", Description: "Fastest, lowest accuracy", SizeBytes: 77_000_000, FileName: "ggml-tiny.bin"},
	{ID: ModelBase, DisplayName: "Base", Description: "Fast, good for English", SizeBytes: 148_000_000, FileName: "ggml-base.bin"},
	{ID: ModelSmall, DisplayName: "Small", Description: "Balanced speed & accuracy", SizeBytes: 488_000_000, FileName: "ggml-small.bin"},
	{ID: ModelMedium, DisplayName: "Medium", Description: "High accuracy", SizeBytes: 1_500_000_000, FileName: "ggml-medium.bin"},
	{ID: ModelLargeV3, DisplayName: "Large V3", Description: "Best accuracy, slowest", SizeBytes: 3_100_000_000, FileName: "ggml-large-v3.bin"},
}

// Catalog returns every known model, smallest first.
func Catalog() []ModelInfo {
	out := make([]ModelInfo, len(catalog))
	copy(out, catalog)
	return out
}

// LookupModel returns the catalog entry for id.
func LookupModel(id ModelID) (ModelInfo, bool) {
	for _, info := range catalog {
		if info.ID == id {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ParseModelID accepts catalog ids case-insensitively, plus "large" and "largev3".
func ParseModelID(s string) (ModelID, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "large", "largev3", "large_v3":
		name = string(ModelLargeV3)
	}
	if _, ok := LookupModel(ModelID(name)); !ok {
		return "", fmt.Errorf("unknown model %q (valid: %s)", s, strings.Join(ModelIDs(), ", "))
	}
	return ModelID(name), nil
}

// ModelIDs lists catalog ids as strings.
func ModelIDs() []string {
	ids := make([]string, len(catalog))
	for i, info := range catalog {
		ids[i] = string(info.ID)
	}
	return ids
}

func (id ModelID) String() string {
	return string(id)
}
