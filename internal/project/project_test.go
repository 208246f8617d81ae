package project

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/stickmotion/internal/figure"
)

func sampleProject() *Project {
	a := figure.DefaultStickman("bob")
	b, _ := figure.SetJointAngle(a, "leftForearm", 1.2)
	return &Project{
		Name:        "walk",
		KeyframeFPS: 3,
		Keyframes:   []figure.FigureFrame{figure.NewFrame(a), figure.NewFrame(b)},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"walk.json", "walk.yaml"} {
		t.Run(name, func(t *testing.T) {
			p := sampleProject()
			path := filepath.Join(dir, name)
			if err := Save(p, path); err != nil {
				t.Fatalf("Save: %v", err)
			}
			back, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(back, p) {
				t.Errorf("round trip mismatch")
			}
		})
	}
}

func TestLoadBareKeyframeList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bare.json")
	data := `[{"figures":[{"name":"x","root":{"id":"root","length":0,"angle":0,"type":"line"},"x":1,"y":2}],
	"viewport":{"offsetX":0,"offsetY":0,"scale":1,"rotation":0},"viewportTransition":"lerp"}]`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "bare" || len(p.Keyframes) != 1 {
		t.Fatalf("unexpected project %+v", p)
	}
	if p.Keyframes[0].ViewportTransition != figure.TransitionLerp {
		t.Error("transition mode lost")
	}
}

func TestFramesUsesFallbackRate(t *testing.T) {
	p := sampleProject()
	p.KeyframeFPS = 0
	frames, err := p.Frames(6, 24)
	if err != nil {
		t.Fatalf("Frames: %v", err)
	}
	if len(frames) != 5 {
		t.Errorf("expected 5 frames, got %d", len(frames))
	}
}

func TestListSkipsMalformed(t *testing.T) {
	dir := t.TempDir()
	if err := Save(sampleProject(), filepath.Join(dir, "good.json")); err != nil {
		t.Fatal(err)
	}
	older := time.Now().Add(-time.Hour)
	if err := Save(sampleProject(), filepath.Join(dir, "older.yaml")); err != nil {
		t.Fatal(err)
	}
	os.Chtimes(filepath.Join(dir, "older.yaml"), older, older)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	list, err := List(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 valid projects, got %d", len(list))
	}
	if filepath.Base(list[0].Path) != "good.json" {
		t.Errorf("newest project should come first, got %s", list[0].Path)
	}
	if list[0].Keyframes != 2 || list[0].Figures != 1 {
		t.Errorf("unexpected summary %+v", list[0])
	}
}
