package evtx_test

import (
	"fmt"
	"log"

	"github.com/intunewithnature/evtxkit/internal/evtxtest"
	"github.com/intunewithnature/evtxkit/pkg/evtx"
	"github.com/intunewithnature/evtxkit/pkg/types"
)

func Example() {
	data := evtxtest.SingleChunkFile(
		evtxtest.Record{EventID: 7036, Level: 4, Provider: "Service Control Manager",
			Data: []string{"Windows Update", "running"}},
		evtxtest.Record{EventID: 36874, Level: 2, Provider: "Schannel",
			Data: []string{"TLS 1.0", "fatal alert 40"}},
	)

	f, err := evtx.OpenBytes(data, types.OpenOptions{})
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	s := f.Events()
	for s.Next() {
		ev := s.Event()
		fmt.Printf("%d %s %s: %s\n", ev.EventID, ev.Level, ev.Provider, ev.Message)
	}
	if err := s.Err(); err != nil {
		log.Fatal(err)
	}

	// Output:
	// 7036 info Service Control Manager: Windows Update | running
	// 36874 error Schannel: TLS 1.0 | fatal alert 40
}
