// Command history prints the most recent captures stored by the receiver.
package main

import (
	"cam-relay/domain/mimetypes"
	"cam-relay/infrastructure/storage"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
)

const defaultHistorySize = 10

func main() {
	_ = godotenv.Load()
	dbPath := flag.String("db", os.Getenv("BADGER_FILEPATH"), "Path to badger DB")
	limit := flag.Int("n", defaultHistorySize, "Number of captures to list")
	export := flag.String("export", "", "Folder where the listed captures are written")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("-db or BADGER_FILEPATH is required")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	repo := storage.NewCaptureRepository(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	captures, err := repo.ListRecent(*limit)
	if err != nil {
		log.Fatal(err)
	}

	renderHistory(os.Stdout, captures)

	if *export != "" {
		if err = exportCaptures(*export, captures); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%d captures written to %s\n", len(captures), *export)
	}
}

func renderHistory(w io.Writer, captures []storage.Capture) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "Label", "Confidence", "Client", "Source", "Type", "Size", "ID"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, c := range captures {
		displayID := c.ID
		if len(displayID) > 8 {
			displayID = displayID[:8]
		}
		kind := c.Kind
		if c.MIME != "" {
			kind = fmt.Sprintf("%s %dx%d", c.MIME, c.Width, c.Height)
		}
		table.Append([]string{
			c.CapturedAt.Format("15:04:05"),
			c.Label,
			fmt.Sprintf("%.1f%%", c.Confidence),
			c.ClientID,
			c.Source,
			kind,
			fmt.Sprintf("%d", len(c.Bytes)),
			displayID,
		})
	}
	table.Render()
}

func exportCaptures(folder string, captures []storage.Capture) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return err
	}
	for _, c := range captures {
		name := fmt.Sprintf("%s_%s%s", c.CapturedAt.Format("20060102_150405"), strings.ReplaceAll(c.Label, "/", "_"),
			mimetypes.Extension(mimetypes.MIME(c.MIME)))
		if err := os.WriteFile(filepath.Join(folder, name), c.Bytes, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// openDB opens the database read-only, so history can run next to a live receiver.
func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
