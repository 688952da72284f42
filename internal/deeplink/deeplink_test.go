package deeplink

import (
	"encoding/json"
	"testing"

	"github.com/cultcrawl/cultcrawl/internal/state"
	"github.com/cultcrawl/cultcrawl/pkg/models"
)

func TestDecodeStringAudioPrecedence(t *testing.T) {
	uri := "curefit://play?absoluteAudioUrl=https%3A%2F%2Fcdn%2Fa.mp3" +
		"&absoluteVideoUrl=https%3A%2F%2Fcdn%2Fv.mp4&title=Calm"

	ref, ok := DecodeString(uri)
	if !ok {
		t.Fatal("expected a deeplink")
	}
	if ref.MediaURL != "https://cdn/a.mp3" {
		t.Errorf("MediaURL = %q; audio must win over video", ref.MediaURL)
	}
	if ref.MediaType != models.MediaAudio {
		t.Errorf("MediaType = %q", ref.MediaType)
	}
	if ref.Title != "Calm" {
		t.Errorf("Title = %q", ref.Title)
	}
}

func TestDecodeStringVideoOnly(t *testing.T) {
	ref, ok := DecodeString("curefit://play?absoluteVideoUrl=https%3A%2F%2Fcdn%2Fv.mp4")
	if !ok {
		t.Fatal("expected a deeplink")
	}
	if ref.MediaURL != "https://cdn/v.mp4" || ref.MediaType != models.MediaVideo {
		t.Errorf("got %q %q", ref.MediaURL, ref.MediaType)
	}
}

func TestDecodeStringDoubleEncodedMediaURL(t *testing.T) {
	// Media URLs are percent-encoded twice by the site; titles once.
	uri := "curefit://play?absoluteAudioUrl=https%253A%252F%252Fcdn%252Fdeep%2520rest.mp3&title=Deep%20Rest"

	ref, ok := DecodeString(uri)
	if !ok {
		t.Fatal("expected a deeplink")
	}
	if ref.MediaURL != "https://cdn/deep rest.mp3" {
		t.Errorf("MediaURL = %q, want both encoding layers removed", ref.MediaURL)
	}
	if ref.Title != "Deep Rest" {
		t.Errorf("Title = %q, want single decode", ref.Title)
	}
}

func TestDecodeStringMetadataWithoutMedia(t *testing.T) {
	ref, ok := DecodeString("curefit://pack?packId=123&title=Sleep%20Stories")
	if !ok {
		t.Fatal("deeplink without media is still a deeplink")
	}
	if ref.MediaURL != "" {
		t.Errorf("MediaURL = %q, want empty", ref.MediaURL)
	}
	if ref.PackID != "123" || ref.Title != "Sleep Stories" {
		t.Errorf("metadata lost: %+v", ref)
	}
}

func TestDecodeStringRejectsOtherSchemes(t *testing.T) {
	for _, raw := range []string{
		"https://www.cult.fit/live",
		"mailto:x@example.com",
		"",
		"curefit:/missing-slashes",
	} {
		if _, ok := DecodeString(raw); ok {
			t.Errorf("%q should not decode", raw)
		}
	}
}

func TestDecodeNonStringNode(t *testing.T) {
	var node state.Node
	if err := json.Unmarshal([]byte(`{"actionType":"NAVIGATE"}`), &node); err != nil {
		t.Fatal(err)
	}
	if _, ok := Decode(&node); ok {
		t.Error("mapping node must not decode as deeplink")
	}
	if _, ok := Decode(nil); ok {
		t.Error("nil node must not decode")
	}
}

func TestDecodeNoQuery(t *testing.T) {
	ref, ok := DecodeString("curefit://home")
	if !ok {
		t.Fatal("bare deeplink is still a deeplink")
	}
	if ref.MediaURL != "" || ref.Title != "" {
		t.Errorf("expected empty ref, got %+v", ref)
	}
}

func TestIsLoginGate(t *testing.T) {
	var gate state.Node
	if err := json.Unmarshal([]byte(`{"actionType":"SHOW_LOGIN_MODAL","title":"x"}`), &gate); err != nil {
		t.Fatal(err)
	}
	if !IsLoginGate(&gate) {
		t.Error("expected login gate")
	}

	var other state.Node
	if err := json.Unmarshal([]byte(`{"actionType":"PLAY"}`), &other); err != nil {
		t.Fatal(err)
	}
	if IsLoginGate(&other) {
		t.Error("PLAY action is not a login gate")
	}

	var str state.Node
	if err := json.Unmarshal([]byte(`"SHOW_LOGIN_MODAL"`), &str); err != nil {
		t.Fatal(err)
	}
	if IsLoginGate(&str) {
		t.Error("string node is not a login gate")
	}
	if IsLoginGate(nil) {
		t.Error("nil node is not a login gate")
	}
}
