package framesink

import (
	"bytes"
	"encoding/json"
	"errors"
	"image/jpeg"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/user/framesift/pkg/engine"
	"github.com/user/framesift/pkg/mocks"
	"github.com/user/framesift/pkg/ports"
)

var testBaseDir = filepath.Join("out", "frames")

func rgbRecord(index int64) engine.FrameRecord {
	const w, h = 4, 2
	pix := make([]byte, w*h*3)
	for i := range pix {
		pix[i] = byte(i * 7)
	}
	return engine.FrameRecord{
		Index:       index,
		Timestamp:   time.Duration(index) * time.Second / 30,
		PTS:         index * 3000,
		Keyframe:    index%30 == 0,
		PictureType: ports.PictureP,
		Width:       w,
		Height:      h,
		Format:      ports.PixelRGB24,
		Pix:         pix,
	}
}

func TestSink_SaveFramePNG(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, FormatPNG, 0)

	path, err := sink.SaveFrame(rgbRecord(42))
	if err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}
	want := filepath.Join(testBaseDir, "frame-000042.png")
	if path != want {
		t.Errorf("path = %q, want %q", path, want)
	}

	data, ok := fs.GetFile(want)
	if !ok {
		t.Fatalf("expected file at %s", want)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 2 {
		t.Errorf("bounds = %v, want 4x2", b)
	}
	r, g, b, _ := img.At(1, 0).RGBA()
	if uint8(r>>8) != 21 || uint8(g>>8) != 28 || uint8(b>>8) != 35 {
		t.Errorf("pixel (1,0) = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestSink_SaveFrameJPEG(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, FormatJPEG, 80)

	path, err := sink.SaveFrame(rgbRecord(7))
	if err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}
	if filepath.Ext(path) != ".jpg" {
		t.Errorf("path = %q, want .jpg", path)
	}
	data, _ := fs.GetFile(path)
	if _, err := jpeg.Decode(bytes.NewReader(data)); err != nil {
		t.Errorf("decode JPEG: %v", err)
	}
}

func TestSink_WriteError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.WriteFileFunc = func(string, []byte) error { return errors.New("disk full") }
	sink := New(testBaseDir, fs, FormatPNG, 0)

	if err := sink.Consume(rgbRecord(1)); err == nil {
		t.Fatal("expected error")
	}
	if len(sink.Entries()) != 0 {
		t.Error("failed writes must not be listed")
	}
}

func TestSink_Manifest(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, FormatPNG, 0)
	for _, idx := range []int64{0, 30} {
		if err := sink.Consume(rgbRecord(idx)); err != nil {
			t.Fatal(err)
		}
	}

	path, err := sink.SaveManifest()
	if err != nil {
		t.Fatalf("SaveManifest failed: %v", err)
	}
	data, _ := fs.GetFile(path)
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("manifest is not JSON: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[1].Index != 30 || entries[1].File != "frame-000030.png" || !entries[1].Keyframe {
		t.Errorf("unexpected entry: %+v", entries[1])
	}
	if entries[1].TimestampMs != 1000 {
		t.Errorf("timestamp = %v, want 1000", entries[1].TimestampMs)
	}
}

func TestParseImageFormat(t *testing.T) {
	for in, want := range map[string]ImageFormat{"": FormatPNG, "PNG": FormatPNG, "jpg": FormatJPEG, "jpeg": FormatJPEG} {
		got, err := ParseImageFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseImageFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseImageFormat("gif"); err == nil {
		t.Error("expected error for gif")
	}
}
