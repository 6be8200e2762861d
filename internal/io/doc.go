// Package ioutils provides file system and image processing utilities.
//
// # File Operations
//
//	// Write data to file
//	err := ioutils.WriteFile("/path/to/cover.jpg", data)
//
//	// Ensure directory exists (idempotent, safe under concurrency)
//	err := ioutils.EnsureDir("/music/Album/Artist/Album")
//
// # Image Processing
//
// The ImageService handles cover art manipulation before embedding:
//
//	svc := ioutils.NewImageService()
//
//	// Resize image to fit within 1280x1280
//	resized, _ := svc.ResizeImage(imageData, 1280, 1280)
//
//	// Convert to JPEG
//	jpeg, _ := svc.ConvertToJPEG(pngData)
package ioutils
