// Package ingest loads batch manifests and the per-level JSONL feature
// files the external extractors produce.
package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/clearframe/forensics-cli/internal/model"
)

// Manifest describes one batch of videos to analyze. Paths inside the
// manifest are resolved relative to the manifest file itself.
type Manifest struct {
	Videos []VideoEntry `yaml:"videos"`
}

// VideoEntry points at one video's extracted features: a directory holding
// <level>.jsonl files, with optional per-level path overrides.
type VideoEntry struct {
	ID          string            `yaml:"id"`
	FeaturesDir string            `yaml:"features_dir"`
	Files       map[string]string `yaml:"files"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read manifest %s", path)
	}

	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse manifest %s", path)
	}
	if len(m.Videos) == 0 {
		return nil, eris.Errorf("ingest: manifest %s lists no videos", path)
	}

	base := filepath.Dir(path)
	seen := make(map[string]bool, len(m.Videos))
	for i := range m.Videos {
		v := &m.Videos[i]
		if v.ID == "" {
			return nil, eris.Errorf("ingest: manifest %s: video %d has no id", path, i)
		}
		if seen[v.ID] {
			return nil, eris.Errorf("ingest: manifest %s: duplicate video id %q", path, v.ID)
		}
		seen[v.ID] = true

		if v.FeaturesDir != "" && !filepath.IsAbs(v.FeaturesDir) {
			v.FeaturesDir = filepath.Join(base, v.FeaturesDir)
		}
		for name, p := range v.Files {
			if _, err := model.ParseLevel(name); err != nil {
				return nil, eris.Wrapf(err, "ingest: manifest %s: video %q", path, v.ID)
			}
			if !filepath.IsAbs(p) {
				v.Files[name] = filepath.Join(base, p)
			}
		}
	}
	return &m, nil
}

// levelPath returns the feature file for a level, or "" when the entry
// provides none.
func (v VideoEntry) levelPath(l model.Level) string {
	if p, ok := v.Files[l.String()]; ok {
		return p
	}
	if v.FeaturesDir == "" {
		return ""
	}
	return filepath.Join(v.FeaturesDir, l.String()+".jsonl")
}

// LoadVideo reads all six levels' feature files in parallel. A level whose
// file does not exist simply contributes no records; the evaluators treat
// that as inconclusive. An unreadable or malformed level file is recorded
// in LoadErrors rather than failing the load, so one broken extractor
// output costs that level alone and not the whole video.
func LoadVideo(ctx context.Context, entry VideoEntry) (*model.VideoFeatures, error) {
	var (
		perLevel [model.NumLevels][]model.FrameFeatureRecord
		loadErrs [model.NumLevels]error
	)

	g, _ := errgroup.WithContext(ctx)
	for i, l := range model.AllLevels() {
		i, l := i, l
		path := entry.levelPath(l)
		if path == "" {
			continue
		}
		g.Go(func() error {
			records, err := LoadFeatureFile(path, l)
			if err != nil {
				loadErrs[i] = err
				return nil
			}
			perLevel[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrapf(err, "ingest: video %s", entry.ID)
	}

	features := &model.VideoFeatures{
		VideoID: entry.ID,
		Records: make(map[model.Level][]model.FrameFeatureRecord, model.NumLevels),
	}
	for i, l := range model.AllLevels() {
		if loadErrs[i] != nil {
			if features.LoadErrors == nil {
				features.LoadErrors = make(map[model.Level]string)
			}
			features.LoadErrors[l] = loadErrs[i].Error()
			continue
		}
		if len(perLevel[i]) > 0 {
			features.Records[l] = perLevel[i]
		}
	}
	return features, nil
}

// LoadFeatureFile parses one level's JSONL file. Records that omit level_id
// inherit the file's level; a record tagged with a different level is an
// extractor bug and fails the load.
func LoadFeatureFile(path string, l model.Level) ([]model.FrameFeatureRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	var records []model.FrameFeatureRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec model.FrameFeatureRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrapf(err, "ingest: %s line %d", path, line)
		}
		if rec.Level == 0 {
			rec.Level = l
		}
		if rec.Level != l {
			return nil, eris.Errorf("ingest: %s line %d: record tagged %s in %s file",
				path, line, rec.Level, l)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "ingest: scan %s", path)
	}
	return records, nil
}
