package model

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	// register decoders for the payload formats browsers actually send
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Input size expected by both ResNet50 predictors.
const imgSize = 224

// Caffe-style BGR channel means used by ResNet50 preprocessing.
var channelMeans = [3]float32{103.939, 116.779, 123.68}

// Input is a preprocessed image in the tensor layout both predictors expect:
// imgSize x imgSize, three channels, BGR, mean-subtracted, HWC order.
type Input struct {
	Pixels []float32
	Width  int
	Height int
}

// Preprocess turns a base64 image payload (with or without a data-URL
// prefix) into the tensor form shared by both predictors: decode, resize to
// 224x224, convert to BGR float32 and subtract the ImageNet channel means.
func Preprocess(payload string) (*Input, error) {
	payload = strings.TrimSpace(payload)
	if idx := strings.Index(payload, "base64,"); idx >= 0 {
		payload = payload[idx+len("base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// tolerate unpadded payloads
		raw, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("decode base64: %w", err)
		}
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	resized := image.NewRGBA(image.Rect(0, 0, imgSize, imgSize))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	px := make([]float32, imgSize*imgSize*3)
	i := 0
	for y := 0; y < imgSize; y++ {
		for x := 0; x < imgSize; x++ {
			off := resized.PixOffset(x, y)
			r := float32(resized.Pix[off])
			g := float32(resized.Pix[off+1])
			b := float32(resized.Pix[off+2])
			// BGR order, per-channel mean subtraction
			px[i] = b - channelMeans[0]
			px[i+1] = g - channelMeans[1]
			px[i+2] = r - channelMeans[2]
			i += 3
		}
	}
	return &Input{Pixels: px, Width: imgSize, Height: imgSize}, nil
}
