//go:build !gocv

package main

import (
	"fmt"
	"io"

	"github.com/banshee-data/barpath/internal/vision/l1frames"
)

const videoSupported = false

func openVideo(path string) (l1frames.Source, func(), error) {
	return nil, func() {}, fmt.Errorf("cannot read %s: video input needs a build with -tags gocv", path)
}

func setVideoLogWriters(io.Writer) {}
