// fyneprobe checks the display stack scopeview depends on: it opens a window
// with an image canvas, pushes a handful of image updates into it from a
// background goroutine through fyne.Do (the exact path scopeview's render loop
// uses) and closes itself. If the shade visibly steps and the program exits
// cleanly, display problems in scopeview are not the toolkit's.
package main

import (
	"fmt"
	"image"
	"image/color"
	"time"

	fyne "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/pro100Roman/plotting-tools/src/stream"
)

const (
	frameCount = 5
	framePause = 500 * time.Millisecond
)

func main() {
	stream.Infof("Display probe: %d frames, one every %s", frameCount, framePause)
	a := app.New()
	win := a.NewWindow("SerialScope display probe")

	img := canvas.NewImageFromImage(testFrame(0))
	img.FillMode = canvas.ImageFillContain
	img.SetMinSize(fyne.NewSize(320, 160))
	label := widget.NewLabel("pushing image updates...")
	win.SetContent(container.NewBorder(nil, label, nil, nil, img))

	go func() {
		for i := 1; i <= frameCount; i++ {
			time.Sleep(framePause)
			frame := testFrame(i)
			n := i
			fyne.Do(func() {
				img.Image = frame
				img.Refresh()
				label.SetText(fmt.Sprintf("frame %d/%d", n, frameCount))
			})
		}
		fyne.Do(func() { win.Close() })
	}()

	win.ShowAndRun()
	stream.Infof("Display probe finished cleanly")
}

// testFrame builds a flat frame whose shade steps with n, so a stuck canvas is
// visible at a glance.
func testFrame(n int) image.Image {
	shade := uint8(40 + n*40)
	im := image.NewRGBA(image.Rect(0, 0, 320, 160))
	c := color.RGBA{R: shade, G: shade, B: 96, A: 255}
	for y := 0; y < 160; y++ {
		for x := 0; x < 320; x++ {
			im.SetRGBA(x, y, c)
		}
	}
	return im
}
