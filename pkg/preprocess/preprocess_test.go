package preprocess

import (
	"image"
	"image/color"
	"math"
	"testing"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x % 256), uint8(y % 256), uint8((x + y) % 256), 255})
		}
	}
	return img
}

func TestPreprocessShape(t *testing.T) {
	p := New()
	sizes := [][2]int{{224, 224}, {640, 480}, {50, 300}, {1, 1}}

	for _, size := range sizes {
		tensor, err := p.Preprocess(createTestImage(size[0], size[1]))
		if err != nil {
			t.Fatalf("Preprocess(%v) failed: %v", size, err)
		}
		if tensor.Shape() != [3]int{3, 224, 224} {
			t.Errorf("Expected shape 3x224x224 for %v, got %v", size, tensor.Shape())
		}
		if len(tensor.Data) != 3*224*224 {
			t.Errorf("Expected %d values, got %d", 3*224*224, len(tensor.Data))
		}
	}
}

func TestPreprocessGoldenValues(t *testing.T) {
	// A frame already at the input size is not resampled, so each value is
	// exactly (pixel/255 - mean_c) / std_c.
	img := createTestImage(InputSize, InputSize)
	img.(*image.NRGBA).Set(0, 0, color.NRGBA{255, 0, 128, 255})

	tensor, err := New().Preprocess(img)
	if err != nil {
		t.Fatalf("Preprocess failed: %v", err)
	}

	normalize := func(pixel uint8, c int) float32 {
		mean := [3]float32{0.485, 0.456, 0.406}
		std := [3]float32{0.229, 0.224, 0.225}
		return (float32(pixel)/255 - mean[c]) / std[c]
	}

	tests := []struct {
		c, y, x int
		pixel   uint8
	}{
		{0, 0, 0, 255},
		{1, 0, 0, 0},
		{2, 0, 0, 128},
		{0, 10, 200, 200},
		{1, 10, 200, 10},
		{2, 10, 200, 210},
		{2, 223, 223, 190},
	}

	for _, test := range tests {
		got := tensor.At(test.c, test.y, test.x)
		if expected := normalize(test.pixel, test.c); got != expected {
			t.Errorf("At(%d,%d,%d) = %v, expected %v", test.c, test.y, test.x, got, expected)
		}
		ref := (float64(test.pixel)/255 - []float64{0.485, 0.456, 0.406}[test.c]) / []float64{0.229, 0.224, 0.225}[test.c]
		if math.Abs(float64(got)-ref) > 1e-5 {
			t.Errorf("At(%d,%d,%d) = %v, deviates from %v", test.c, test.y, test.x, got, ref)
		}
	}

	if got := tensor.At(0, 0, 0); math.Abs(float64(got)-2.2489083) > 1e-5 {
		t.Errorf("Expected saturated red to normalize to 2.2489083, got %v", got)
	}
}

func TestPreprocessDeterministic(t *testing.T) {
	img := createTestImage(320, 240)
	p := New()

	first, err := p.Preprocess(img)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Preprocess(img)
	if err != nil {
		t.Fatal(err)
	}

	for i := range first.Data {
		if first.Data[i] != second.Data[i] {
			t.Fatalf("Preprocess is not reproducible at %d: %v != %v", i, first.Data[i], second.Data[i])
		}
	}
}

func TestPreprocessEmptyFrame(t *testing.T) {
	p := New()
	if _, err := p.Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0))); err != ErrEmptyFrame {
		t.Errorf("Expected ErrEmptyFrame, got %v", err)
	}
	if _, err := p.Preprocess(nil); err != ErrEmptyFrame {
		t.Errorf("Expected ErrEmptyFrame for nil, got %v", err)
	}
}

func BenchmarkPreprocess(b *testing.B) {
	img := createTestImage(1280, 720)
	p := New()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.Preprocess(img)
	}
}
