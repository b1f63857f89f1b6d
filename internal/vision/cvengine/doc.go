// Package cvengine provides OpenCV-backed implementations of the tracking
// engine and of l1frames.Source, through gocv. Everything except this
// file is built only with the gocv build tag, since gocv needs OpenCV
// headers and libraries at build time:
//
//	go build -tags gocv ./...
//
// Importing the package registers the "opencv" engine.
package cvengine
