//go:build gocv

package main

import (
	"io"

	"github.com/banshee-data/barpath/internal/vision/cvengine"
	"github.com/banshee-data/barpath/internal/vision/l1frames"
)

const videoSupported = true

func openVideo(path string) (l1frames.Source, func(), error) {
	v, err := cvengine.OpenVideo(path)
	if err != nil {
		return nil, func() {}, err
	}
	return v, func() { v.Close() }, nil
}

func setVideoLogWriters(trace io.Writer) { cvengine.SetLogWriters(trace) }
