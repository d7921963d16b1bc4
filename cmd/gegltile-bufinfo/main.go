// Command gegltile-bufinfo dumps a swap-file backend's header: magic
// validation, tile geometry, recorded extent, and a free-slot census. It
// opens the file read-only and never takes the backend's write lock.
package main

import (
	"flag"
	"log"

	"golang.org/x/text/message"

	"github.com/gogpu/gegltile/internal/tilestore"
)

func main() {
	var path = flag.String("swap", "", "path to a gegltile swap file")
	flag.Parse()

	if *path == "" {
		log.Fatal("gegltile-bufinfo: -swap is required")
	}

	info, err := tilestore.ReadSwapHeaderInfo(*path)
	if err != nil {
		log.Fatalf("gegltile-bufinfo: %v", err)
	}

	p := message.NewPrinter(message.MatchLanguage("en"))
	p.Printf("version:       %d\n", info.Version)
	p.Printf("tile size:     %d x %d\n", info.TileWidth, info.TileHeight)
	p.Printf("bytes/pixel:   %d\n", info.BytesPerPixel)
	p.Printf("extent:        (%d, %d) %d x %d\n", info.ExtentX, info.ExtentY, info.ExtentW, info.ExtentH)
	p.Printf("slots:         %d\n", info.SlotCount)
	p.Printf("free slots:    %d\n", info.FreeSlotCount)
	p.Printf("tile bytes:    %d\n", info.TileWidth*info.TileHeight*info.BytesPerPixel)
}
