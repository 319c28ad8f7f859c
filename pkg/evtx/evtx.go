package evtx

import (
	"github.com/intunewithnature/evtxkit/internal/reader"
	"github.com/intunewithnature/evtxkit/pkg/types"
)

// File is an open event log. The caller must call Close when done to
// release the mapping; streams borrow the mapping and must be exhausted
// first.
type File struct {
	r *reader.Reader
}

// Open maps the log at path for reading. It fails only when the file header
// is invalid; corruption below file level is handled during streaming.
//
// Example:
//
//	f, err := evtx.Open("System.evtx", types.OpenOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Close()
func Open(path string, opts types.OpenOptions) (*File, error) {
	r, err := reader.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &File{r: r}, nil
}

// OpenBytes opens a log held in memory. The buffer must stay unmodified for
// the lifetime of the File.
func OpenBytes(data []byte, opts types.OpenOptions) (*File, error) {
	r, err := reader.OpenBytes(data, opts)
	if err != nil {
		return nil, err
	}
	return &File{r: r}, nil
}

// Info summarizes the file header.
func (f *File) Info() types.FileInfo {
	return f.r.Info()
}

// Events returns a fresh stream over all events in the file. Streams are
// independent; each restarts from the first chunk.
func (f *File) Events() types.EventStream {
	return f.r.Events()
}

// Close releases the underlying mapping.
func (f *File) Close() error {
	return f.r.Close()
}

// CountEvents opens the log at path and drains it, returning the number of
// decodable events.
func CountEvents(path string) (int, error) {
	f, err := Open(path, types.OpenOptions{})
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n := 0
	stream := f.Events()
	for stream.Next() {
		n++
	}
	return n, stream.Err()
}
