package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"catalogdesk-backend/internal/availability"
	"catalogdesk-backend/internal/catalog"
	"catalogdesk-backend/lib/serviceutil"
	"catalogdesk-backend/lib/telemetry"
)

// readURLs returns the url column of a csv file.
func readURLs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	column := -1
	for i, h := range records[0] {
		if _, ok := catalog.FindColumn([]string{catalog.URLColumn}, h); ok {
			column = i
			break
		}
	}
	if column < 0 {
		return nil, fmt.Errorf("no %q column", catalog.URLColumn)
	}

	var urls []string
	for _, row := range records[1:] {
		if column < len(row) && row[column] != "" {
			urls = append(urls, row[column])
		}
	}
	return urls, nil
}

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging.")
	concurrency := flag.Int("concurrency", 10, "Number of product pages fetched at once.")
	timeout := flag.Duration("timeout", time.Second*30, "Timeout of a single page fetch.")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: availability-check [flags] <urls.csv>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	// stdout carries results only, logs go to stderr
	telemetry.InitSlog(*verbose)
	ctx := serviceutil.SignalContext()

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		serviceutil.Fatal("open url list", err)
	}
	urls, err := readURLs(f)
	f.Close()
	if err != nil {
		serviceutil.Fatal("read url list", err)
	}

	out := sync.Mutex{}
	checker := availability.NewPageChecker(*concurrency, *timeout)
	err = checker.Check(ctx, urls, func(r availability.Result) {
		out.Lock()
		defer out.Unlock()
		fmt.Println(availability.FormatLine(r))
	})
	if err != nil && ctx.Err() == nil {
		serviceutil.Fatal("check availability", err)
	}
}
