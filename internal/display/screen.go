// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders the meter's screens onto a 128x64 monochrome
// OLED.
package display

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

const (
	Width  = 128
	Height = 64

	lineHeight = 13
)

var face = basicfont.Face7x13

func blank() *image1bit.VerticalLSB {
	// NewVerticalLSB starts with every pixel off.
	return image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
}

func newDrawer(img draw.Image) *font.Drawer {
	return &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: face,
	}
}

// textWidth is the advance of s in pixels at scale 1.
func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawText draws s with its baseline at y, horizontally centered.
func drawText(img draw.Image, s string, y int) {
	d := newDrawer(img)
	d.Dot = fixed.P((Width-textWidth(s))/2, y)
	d.DrawString(s)
}

// drawScaled draws s magnified by scale, centered on the screen, with the
// top of the text at y.
func drawScaled(img draw.Image, s string, scale, y int) {
	w := textWidth(s)
	src := image1bit.NewVerticalLSB(image.Rect(0, 0, w, lineHeight))
	d := newDrawer(src)
	d.Dot = fixed.P(0, face.Ascent)
	d.DrawString(s)

	x := (Width - w*scale) / 2
	dst := image.Rect(x, y, x+w*scale, y+lineHeight*scale)
	draw.NearestNeighbor.Scale(img, dst, src, src.Bounds(), draw.Over, nil)
}

// SplashScreen shows the product name and firmware revision.
func SplashScreen(revision string) image.Image {
	img := blank()
	drawScaled(img, "Roast", 2, 2)
	drawText(img, "Meter "+revision, 50)
	return img
}

// MessageScreen shows up to four centered lines.
func MessageScreen(lines ...string) image.Image {
	img := blank()
	top := (Height-len(lines)*lineHeight)/2 + face.Ascent
	for i, l := range lines {
		drawText(img, l, top+i*lineHeight)
	}
	return img
}

// LoadSampleScreen prompts the operator to load a sample.
func LoadSampleScreen() image.Image {
	return MessageScreen("Please", "load", "sample!")
}

// SensorErrorScreen is shown while the sensor cannot be initialized.
func SensorErrorScreen() image.Image {
	return MessageScreen("Sensor Error!", "Check wiring")
}

// WarmupFace is the countdown mascot for the LED warm-up.
func WarmupFace(secondsLeft int) string {
	switch {
	case secondsLeft > 45:
		return "(-.-)zzZ"
	case secondsLeft > 30:
		return "(-.-)z"
	case secondsLeft > 15:
		return "(o.o)"
	case secondsLeft > 5:
		return "(^.^)"
	}
	return "(^o^)/"
}

// WarmupScreen shows the warm-up countdown.
func WarmupScreen(secondsLeft int) image.Image {
	img := blank()
	drawScaled(img, WarmupFace(secondsLeft), 2, 4)
	drawText(img, fmt.Sprintf("Warming up %ds", secondsLeft), 50)
	return img
}

// ReadyScreen is shown once when the warm-up finishes.
func ReadyScreen() image.Image {
	img := blank()
	drawScaled(img, "(^o^)/", 2, 4)
	drawText(img, "Ready!", 50)
	return img
}

// RoastIndexScreen shows a roast index in large digits.
func RoastIndexScreen(index int) image.Image {
	img := blank()
	drawScaled(img, fmt.Sprintf("%d", index), 4, 6)
	return img
}

// CalibrationScreen confirms a captured calibration point.
func CalibrationScreen(point, known int) image.Image {
	return MessageScreen("Calibration", fmt.Sprintf("point %d", point), fmt.Sprintf("= %d", known))
}
