// Command lcdsnap converts a raw LCD CGRAM snapshot dump (written by
// `pp5020 -steps N -lcd-dump <path>`) into a BMP file for offline
// inspection. The PP5020 LCD's pixel→framebuffer conversion is an
// external collaborator (the emulator itself never renders), so this is
// a standalone developer utility rather than part of the main binary -
// the same separation the teacher keeps between the emulator and its
// cmd/ie32to64 conversion tool.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// readDump parses the flat format main.go's writeLCDDump produces: an
// 8-byte little-endian width/height header followed by w*h little-endian
// uint32 RGB words (top byte always zero).
func readDump(path string) (pix []uint32, w, h int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(data) < 8 {
		return nil, 0, 0, fmt.Errorf("lcdsnap: dump too short (%d bytes)", len(data))
	}
	w = int(binary.LittleEndian.Uint32(data[0:4]))
	h = int(binary.LittleEndian.Uint32(data[4:8]))
	want := 8 + w*h*4
	if len(data) < want {
		return nil, 0, 0, fmt.Errorf("lcdsnap: dump truncated, want %d bytes got %d", want, len(data))
	}

	pix = make([]uint32, w*h)
	off := 8
	for i := range pix {
		pix[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}
	return pix, w, h, nil
}

func toImage(pix []uint32, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := pix[y*w+x]
			img.Set(x, y, color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff})
		}
	}
	return img
}

func main() {
	in := flag.String("in", "", "raw LCD snapshot dump produced by pp5020 -lcd-dump")
	out := flag.String("out", "lcdsnap.bmp", "output BMP path")
	scale := flag.Int("scale", 4, "integer nearest-neighbor upscale factor")
	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "usage: lcdsnap -in <dump> [-out file.bmp] [-scale N]")
		os.Exit(1)
	}

	pix, w, h, err := readDump(*in)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	src := toImage(pix, w, h)
	var dst image.Image = src
	if *scale > 1 {
		scaled := image.NewNRGBA(image.Rect(0, 0, w*(*scale), h*(*scale)))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Over, nil)
		dst = scaled
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer f.Close()

	if err := bmp.Encode(f, dst); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%dx%d)\n", *out, w*(*scale), h*(*scale))
}
