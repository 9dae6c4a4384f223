package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shipkr/shipdata/internal/fetch"
	"github.com/shipkr/shipdata/internal/logging"
)

func main() {
	var (
		base     = flag.String("base", "https://github.com/AzurLaneTools/AzurLaneData.git", "base url")
		region   = flag.String("region", "KR", "server region of the tables")
		source   = flag.String("source", "", "go-getter source address (overrides -base and -region)")
		out      = flag.String("o", "./public", "output dir path")
		files    = flag.String("files", strings.Join(fetch.DefaultFiles, ","), "comma-separated table file names")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	log, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}

	if *out == "" {
		fmt.Fprintln(os.Stderr, "error: -o is required")
		flag.Usage()
		os.Exit(2)
	}

	src := *source
	if src == "" {
		if *base == "" || *region == "" {
			fmt.Fprintln(os.Stderr, "error: -base and -region are required without -source")
			flag.Usage()
			os.Exit(2)
		}
		// https://github.com/AzurLaneTools/AzurLaneData/tree/main/KR
		src = fmt.Sprintf("git::%s//%s", *base, *region)
	}

	var names []string
	for _, n := range strings.Split(*files, ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fetch.Fetch(ctx, fetch.Options{Source: src, DataDir: *out, Files: names}, log); err != nil {
		log.Error("fetch failed", "error", err)
		stop()
		os.Exit(1)
	}
	log.Info("done", "dir", *out, "files", len(names))
}
