// Package storage provides file management for downloaded images.
//
// The Manager type is the primary interface for storage operations. It
// writes each image to a temporary file in the destination directory and
// renames it into place, so a failed or interrupted download never
// leaves a partial file behind.
//
// Usage:
//
//	manager, err := storage.NewManager("./output")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !manager.Exists(dest) {
//	    err = manager.Save(imageReader, dest)
//	}
package storage
