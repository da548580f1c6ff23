// Package watcher reports changes to note files under a corpus directory.
//
// A Watcher takes raw events from fsnotify, or from periodic directory scans
// when fsnotify is unavailable or disabled, drops hidden paths and files
// outside the corpus extensions, and coalesces what remains per path for a
// short window. An editor's save (write temp file, rename, chmod) therefore
// arrives as one Modified event, and a file created then deleted inside the
// window never arrives at all.
//
//	w, err := watcher.New(watcher.Options{Extensions: []string{".md"}})
//	if err != nil {
//	    return err
//	}
//	go func() { _ = w.Run(ctx, "/path/to/notes") }()
//
//	for batch := range w.Batches() {
//	    for _, ev := range batch {
//	        // ev.Op is Created, Modified, Removed or Moved
//	    }
//	}
package watcher
