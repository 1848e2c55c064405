package detector

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestHandLandmarks_Point(t *testing.T) {
	hand := HandLandmarks{Points: make([]Point3D, 9)}
	hand.Points[IndexTip] = Point3D{X: 0.25, Y: 0.5}

	t.Run("present landmark", func(t *testing.T) {
		p, ok := hand.Point(IndexTip)
		if !ok {
			t.Fatal("expected index tip to be present")
		}
		if p.X != 0.25 || p.Y != 0.5 {
			t.Errorf("got %+v, want {0.25 0.5 0}", p)
		}
	})

	t.Run("missing landmark", func(t *testing.T) {
		if _, ok := hand.Point(PinkyTip); ok {
			t.Error("expected pinky tip to be missing on a 9-point hand")
		}
		if _, ok := hand.Point(-1); ok {
			t.Error("expected negative index to be missing")
		}
	})
}

func TestHandLandmarks_Has(t *testing.T) {
	tests := []struct {
		name    string
		points  int
		indices []int
		want    bool
	}{
		{"empty hand", 0, []int{Wrist}, false},
		{"thumb and index on partial hand", 9, []int{ThumbTip, IndexTip}, true},
		{"pinky on partial hand", 9, []int{ThumbTip, PinkyTip}, false},
		{"all tips on full hand", NumLandmarks, FingerTips[:], true},
		{"nothing requested", 0, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hand := HandLandmarks{Points: make([]Point3D, tt.points)}
			if got := hand.Has(tt.indices...); got != tt.want {
				t.Errorf("Has(%v) = %v, want %v", tt.indices, got, tt.want)
			}
		})
	}
}

func TestHandLandmarks_Mirror(t *testing.T) {
	hand := OpenPalmLandmarks()
	mirrored := hand.Mirror()

	if mirrored.Handedness != "Left" {
		t.Errorf("expected handedness Left, got %s", mirrored.Handedness)
	}
	if got, want := mirrored.Points[ThumbTip].X, 1-hand.Points[ThumbTip].X; got != want {
		t.Errorf("mirrored thumb X = %f, want %f", got, want)
	}
	if mirrored.Points[ThumbTip].Y != hand.Points[ThumbTip].Y {
		t.Error("mirroring must not change Y")
	}
	if hand.Points[ThumbTip].X != 0.73 {
		t.Error("mirroring must not modify the original hand")
	}
}

func TestLandmarkName(t *testing.T) {
	if got := LandmarkName(IndexTip); got != "index_tip" {
		t.Errorf("got %q, want index_tip", got)
	}
	if got := LandmarkName(NumLandmarks); got != "unknown" {
		t.Errorf("got %q, want unknown", got)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks()})

		hands, err := mock.Detect(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()
		want := errors.New("camera unplugged")
		mock.SetError(want)

		if _, err := mock.Detect(nil); !errors.Is(err, want) {
			t.Errorf("got %v, want %v", err, want)
		}
	})
}

func TestPresetPoses(t *testing.T) {
	t.Run("open palm tips above wrist", func(t *testing.T) {
		hand := OpenPalmLandmarks()
		for _, tip := range FingerTips {
			if hand.Points[tip].Y >= hand.Points[Wrist].Y {
				t.Errorf("%s should be above the wrist", LandmarkName(tip))
			}
		}
	})

	t.Run("closed palm fingers below wrist", func(t *testing.T) {
		hand := ClosedPalmLandmarks()
		for _, tip := range FingerTips[1:] {
			if hand.Points[tip].Y <= hand.Points[Wrist].Y {
				t.Errorf("%s should be below the wrist", LandmarkName(tip))
			}
		}
	})

	t.Run("pinch tips straddle center", func(t *testing.T) {
		hand := PinchLandmarks(0.2, 0.05)
		if hand.Points[ThumbTip].X >= 0.2 || hand.Points[IndexTip].X <= 0.2 {
			t.Errorf("thumb %f and index %f should straddle 0.2",
				hand.Points[ThumbTip].X, hand.Points[IndexTip].X)
		}
	})

	t.Run("level tips match wrist", func(t *testing.T) {
		hand := LevelLandmarks()
		for _, tip := range FingerTips {
			if hand.Points[tip].Y != hand.Points[Wrist].Y {
				t.Errorf("%s should be level with the wrist", LandmarkName(tip))
			}
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte("jpeg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := buf.Bytes()
	if len(raw) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(raw))
	}
	if n := binary.BigEndian.Uint32(raw[:4]); n != 4 {
		t.Errorf("length prefix = %d, want 4", n)
	}
	if string(raw[4:]) != "jpeg" {
		t.Errorf("payload = %q, want jpeg", raw[4:])
	}
}

func TestReadHands(t *testing.T) {
	t.Run("parses hands", func(t *testing.T) {
		line := `{"hands":[{"points":[{"x":0.1,"y":0.2,"z":0},{"x":0.3,"y":0.4,"z":0}],"handedness":"Left","score":0.8}]}` + "\n"
		hands, err := readHands(bufio.NewReader(strings.NewReader(line)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected 1 hand, got %d", len(hands))
		}
		if len(hands[0].Points) != 2 {
			t.Errorf("expected 2 points, got %d", len(hands[0].Points))
		}
		if hands[0].Handedness != "Left" {
			t.Errorf("expected handedness Left, got %s", hands[0].Handedness)
		}
	})

	t.Run("service error", func(t *testing.T) {
		line := `{"error":"model not loaded"}` + "\n"
		if _, err := readHands(bufio.NewReader(strings.NewReader(line))); err == nil {
			t.Error("expected error from service")
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		if _, err := readHands(bufio.NewReader(strings.NewReader("nope\n"))); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestNewMediaPipeDetector_MissingScript(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Script = t.TempDir() + "/missing.py"

	_, err := NewMediaPipeDetector(cfg)
	if !errors.Is(err, ErrScriptNotFound) {
		t.Errorf("got %v, want ErrScriptNotFound", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxHands != 2 {
		t.Errorf("MaxHands = %d, want 2", cfg.MaxHands)
	}
	if cfg.MinConfidence != 0.7 || cfg.MinTrackingConf != 0.7 {
		t.Errorf("confidence thresholds = %v/%v, want 0.7/0.7", cfg.MinConfidence, cfg.MinTrackingConf)
	}
}
