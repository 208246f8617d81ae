package project

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/stickmotion/internal/animation"
	"github.com/ivlev/stickmotion/internal/figure"
)

// Project is the persisted editor state: an ordered list of keyframes and
// the rate at which they were authored.
type Project struct {
	Name        string               `json:"name,omitempty" yaml:"name,omitempty"`
	KeyframeFPS int                  `json:"keyframeFps,omitempty" yaml:"keyframeFps,omitempty"`
	Keyframes   []figure.FigureFrame `json:"keyframes" yaml:"keyframes"`
}

// Summary describes a project file for listings.
type Summary struct {
	Path      string
	Name      string
	Keyframes int
	Figures   int
	ModTime   time.Time
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads a project from JSON or YAML (chosen by extension). A JSON file
// holding a bare array of keyframes is accepted as well.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Project
	switch {
	case isYAML(path):
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")):
		if err := json.Unmarshal(data, &p.Keyframes); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	for i, kf := range p.Keyframes {
		if err := kf.Validate(); err != nil {
			return nil, fmt.Errorf("%s: keyframe %d: %w", path, i, err)
		}
	}
	return &p, nil
}

// Save writes the project in the format implied by the extension.
func Save(p *Project, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(p)
	} else {
		data, err = json.MarshalIndent(p, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Frames expands the keyframes to targetFps. fallbackFps is used when the
// project does not record its keyframe rate.
func (p *Project) Frames(fallbackFps, targetFps int) ([]figure.FigureFrame, error) {
	kfps := p.KeyframeFPS
	if kfps <= 0 {
		kfps = fallbackFps
	}
	return animation.ExpandFrames(p.Keyframes, kfps, targetFps)
}

// List loads every project file in dir, newest first. Unreadable files are
// logged and skipped.
func List(dir string, logger zerolog.Logger) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())

		p, err := Load(path)
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable project")
			continue
		}
		info, err := e.Info()
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("skipping project without file info")
			continue
		}

		figures := make(map[string]struct{})
		for _, kf := range p.Keyframes {
			for _, f := range kf.Figures {
				figures[f.Name] = struct{}{}
			}
		}
		out = append(out, Summary{
			Path:      path,
			Name:      p.Name,
			Keyframes: len(p.Keyframes),
			Figures:   len(figures),
			ModTime:   info.ModTime(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}
