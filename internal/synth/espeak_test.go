package synth

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestESpeakArgs(t *testing.T) {
	engine := NewESpeakNG(DefaultParams())

	want := []string{
		"-v", "en",
		"-s", "175",
		"-p", "50",
		"-a", "100",
		"--stdout",
		"Hello world.",
	}
	if got := engine.args("Hello world."); !reflect.DeepEqual(got, want) {
		t.Errorf("args mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestESpeakArgsScaleWithParams(t *testing.T) {
	engine := NewESpeak(Params{Voice: "en-us", Speed: 2.0, Pitch: 0.5, SampleRate: 22050})

	want := []string{
		"-v", "en-us",
		"-s", "350",
		"-p", "25",
		"-a", "100",
		"--stdout",
		"text",
	}
	if got := engine.args("text"); !reflect.DeepEqual(got, want) {
		t.Errorf("args mismatch:\ngot  %v\nwant %v", got, want)
	}
}

func TestESpeakNames(t *testing.T) {
	if name := NewESpeakNG(DefaultParams()).Name(); name != "espeak-ng" {
		t.Errorf("NewESpeakNG name: got %q", name)
	}
	if name := NewESpeak(DefaultParams()).Name(); name != "espeak" {
		t.Errorf("NewESpeak name: got %q", name)
	}
	if name := NewFestival(DefaultParams()).Name(); name != "festival" {
		t.Errorf("NewFestival name: got %q", name)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	engines := []Engine{
		NewESpeakNG(DefaultParams()),
		NewESpeak(DefaultParams()),
		NewFestival(DefaultParams()),
	}

	for _, engine := range engines {
		t.Run(engine.Name(), func(t *testing.T) {
			if _, err := engine.Synthesize(context.Background(), "   "); !errors.Is(err, ErrEmptyText) {
				t.Errorf("Expected ErrEmptyText, got %v", err)
			}
		})
	}
}
