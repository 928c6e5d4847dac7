package ltr

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ArtifactMetadata records provenance for a trained model.
type ArtifactMetadata struct {
	TrainedAt      time.Time `json:"trained_at"`
	Examples       int       `json:"examples"`
	Queries        int       `json:"queries"`
	ValidationNDCG float64   `json:"validation_ndcg"`
	SchemaVersion  int       `json:"schema_version"`
}

// Artifact is the on-disk unit of deployment: a model plus the exact
// feature column order it was trained on. Serving must assemble feature
// rows in this order, not in whatever order the current schema declares.
type Artifact struct {
	Model          *Model           `json:"model"`
	FeatureColumns []string         `json:"feature_columns"`
	Metadata       ArtifactMetadata `json:"metadata"`
}

// Save writes the artifact to path atomically: the JSON is written to a
// temp file in the same directory and renamed over the destination, so a
// concurrent reader never observes a partial artifact.
func (a *Artifact) Save(path string) error {
	if a.Model == nil {
		return fmt.Errorf("ltr: artifact has no model")
	}
	if len(a.FeatureColumns) != a.Model.NumFeatures {
		return fmt.Errorf("ltr: %d feature columns but model expects %d", len(a.FeatureColumns), a.Model.NumFeatures)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.json")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(a); err != nil {
		tmp.Close()
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates an artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.Model == nil {
		return nil, fmt.Errorf("ltr: artifact %s has no model", path)
	}
	if len(a.FeatureColumns) != a.Model.NumFeatures {
		return nil, fmt.Errorf("ltr: artifact %s has %d feature columns but model expects %d",
			path, len(a.FeatureColumns), a.Model.NumFeatures)
	}
	return &a, nil
}
