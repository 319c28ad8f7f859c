/*
Package evtx provides a high-level API for reading Windows Event Log (.evtx)
files.

# Quick Start

Stream every event in a log:

	f, err := evtx.Open("System.evtx", types.OpenOptions{})
	if err != nil {
	    log.Fatal(err)
	}
	defer f.Close()

	stream := f.Events()
	for stream.Next() {
	    ev := stream.Event()
	    fmt.Println(ev.Timestamp, ev.Level, ev.EventID, ev.Provider, ev.Message)
	}
	if err := stream.Err(); err != nil {
	    log.Fatal(err)
	}

# Features

  - mmap-backed, zero-copy chunk and record views
  - Full BinXML decoding with chunk-scoped template and name caches
  - CRC32 validation of chunk headers and record data
  - Partial-failure semantics: corrupt chunks are skipped, broken records
    stop only their own chunk, undecodable payloads drop one record
  - Skip accounting via Stats and optional per-offset diagnostics

# Error Handling

Only a malformed file header fails Open. Everything below file level is
recovered locally and surfaced through the stream's counters:

	stream := f.Events()
	for stream.Next() {
	    ...
	}
	st := stream.Stats()
	if st.ChunksSkipped > 0 || st.RecordsSkipped > 0 {
	    log.Printf("skipped %d chunks, %d records", st.ChunksSkipped, st.RecordsSkipped)
	}

For forensics-grade detail, enable diagnostics collection:

	f, _ := evtx.Open("System.evtx", types.OpenOptions{CollectDiagnostics: true})
	stream := f.Events()
	for stream.Next() {
	}
	report := stream.Diagnostics()
	for _, d := range report.Diagnostics {
	    fmt.Printf("%s at 0x%X: %s\n", d.Structure, d.Offset, d.Issue)
	}
*/
package evtx
