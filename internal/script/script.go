// Package script reads YAML scenario scripts and compiles them into
// programs for the director.
package script

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/stickmotion/internal/renderer"
)

const (
	StepSequence = "sequence"
	StepTTS      = "tts"
	StepVideo    = "video"
	StepGroup    = "group"
)

// Script is a complete scenario.
type Script struct {
	Version string `yaml:"version"`
	Title   string `yaml:"title,omitempty"`
	Steps   []Step `yaml:"steps"`

	// Dir resolves relative paths; ReadScript sets it to the script's folder.
	Dir string `yaml:"-"`
}

// Step is one instruction. Which fields apply depends on Type.
type Step struct {
	Type string `yaml:"type"`
	// Start is "after" (default), "at:<sec>" or a bare number of seconds.
	Start string `yaml:"start,omitempty"`
	// End is "until-end", "before-next[:<min sec>]", "at:<sec>" or
	// "for:<sec>". Speech and video steps take their length from the media.
	End string `yaml:"end,omitempty"`
	// On places a step on the words it names inside a tts step.
	On  string `yaml:"on,omitempty"`
	Tag string `yaml:"tag,omitempty"`

	Content *Content    `yaml:"content,omitempty"`
	Enter   *Transition `yaml:"enter,omitempty"`
	Exit    *Transition `yaml:"exit,omitempty"`

	// tts
	Text string `yaml:"text,omitempty"`

	// video
	Path string  `yaml:"path,omitempty"`
	In   float64 `yaml:"in,omitempty"`
	Out  float64 `yaml:"out,omitempty"`

	Steps []Step `yaml:"steps,omitempty"`
}

const (
	ContentAnimation = "animation"
	ContentImage     = "image"
	ContentPDF       = "pdf"
	ContentQR        = "qr"
	ContentText      = "text"
	ContentFill      = "fill"
	ContentClip      = "clip"
)

// Content describes what a sequence shows.
type Content struct {
	Type   string               `yaml:"type"`
	Path   string               `yaml:"path,omitempty"`
	Page   int                  `yaml:"page,omitempty"`
	DPI    int                  `yaml:"dpi,omitempty"`
	Text   string               `yaml:"text,omitempty"`
	Size   float64              `yaml:"size,omitempty"`
	Color  string               `yaml:"color,omitempty"`
	Loop   bool                 `yaml:"loop,omitempty"`
	Camera []renderer.CameraKey `yaml:"camera,omitempty"`
}

type Transition struct {
	Type     string  `yaml:"type"`
	Duration float64 `yaml:"duration"`
	Easing   string  `yaml:"easing,omitempty"`
}

// WriteScript writes a script to a YAML file
func WriteScript(s *Script, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ReadScript reads and checks a script from a YAML file
func ReadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.Dir = filepath.Dir(path)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// Validate checks step structure without touching any files.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("script has no steps")
	}
	return validateSteps(s.Steps, "steps", false)
}

func validateSteps(steps []Step, at string, inSpeech bool) error {
	for i, st := range steps {
		where := fmt.Sprintf("%s[%d]", at, i)
		if err := st.validate(where, inSpeech); err != nil {
			return err
		}
	}
	return nil
}

func (st Step) validate(where string, inSpeech bool) error {
	if _, err := parseStart(st.Start); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	if _, err := parseEnd(st.End, nil); err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	if st.On != "" && !inSpeech {
		return fmt.Errorf("%s: 'on' is only valid inside a tts step", where)
	}
	if st.On != "" && st.Start != "" {
		return fmt.Errorf("%s: 'on' and 'start' are exclusive", where)
	}

	switch st.Type {
	case StepSequence:
		if st.Content == nil {
			return fmt.Errorf("%s: sequence without content", where)
		}
		if len(st.Steps) > 0 {
			return fmt.Errorf("%s: sequence steps cannot have children", where)
		}
	case StepTTS:
		if st.Text == "" {
			return fmt.Errorf("%s: tts without text", where)
		}
		if st.End != "" {
			return fmt.Errorf("%s: tts length comes from the speech", where)
		}
		return validateSteps(st.Steps, where+".steps", true)
	case StepVideo:
		if st.Path == "" {
			return fmt.Errorf("%s: video without path", where)
		}
		if st.In < 0 || (st.Out != 0 && st.Out <= st.In) {
			return fmt.Errorf("%s: invalid clip range %v..%v", where, st.In, st.Out)
		}
		if st.End != "" {
			return fmt.Errorf("%s: video length comes from the clip", where)
		}
	case StepGroup:
	default:
		return fmt.Errorf("%s: unknown step type %q", where, st.Type)
	}
	return validateSteps(st.Steps, where+".steps", inSpeech)
}
