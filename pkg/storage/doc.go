// Package storage writes downloaded media into the output directory.
//
// Files are written to a temporary name and renamed into place, so a
// crashed or cancelled download never leaves a truncated file under its
// final name. The Manager remembers which files exist so repeated fetches
// of the same post skip work that is already done.
//
// Usage:
//
//	manager, err := storage.NewManager("downloads")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if !manager.Exists("instagram_Cabc123.mp4") {
//	    path, err := manager.Save(body, "instagram_Cabc123.mp4")
//	    ...
//	}
package storage
