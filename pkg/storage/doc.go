// Package storage manages the crawler's output tree.
//
// Every query gets its own directory directly under the configured root.
// Files are written through a temporary sibling and renamed into place, so
// an interrupted or failed write never leaves a partial image behind.
//
//	manager, err := storage.NewManager("dataset")
//	dir, err := manager.PrepareQueryDir("cat", false)
//	n, err := manager.Save(resp.Body, filepath.Join(dir, "cat_Image_1.jpg"))
package storage
