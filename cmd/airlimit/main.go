// cmd/airlimit/main.go
// Copyright(c) 2025-2026 airlimit contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// airlimit reports the airport height restrictions at the points given on
// the command line or in a batch file. It can also check and compile
// airport registries.

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/skyshow/airlimit/aviation"
	"github.com/skyshow/airlimit/geodesy"
	"github.com/skyshow/airlimit/log"
	"github.com/skyshow/airlimit/math"
	"github.com/skyshow/airlimit/present"
	"github.com/skyshow/airlimit/restrict"
	"github.com/skyshow/airlimit/util"

	"github.com/pkg/browser"
)

var (
	registryURI  = flag.String("registry", "", "airport registry: file, directory, gs://bucket/object or s3://bucket/key (default: built-in)")
	providerName = flag.String("provider", "spherical", "geometry provider: "+strings.Join(geodesy.Names(), ", "))
	batchFile    = flag.String("batch", "", "file with one \"lat, lng\" point per line; \"-\" for stdin")
	lint         = flag.Bool("lint", false, "check the airport registry and summarize it")
	compileTo    = flag.String("compile", "", "write the registry in compiled form (.msgpack.zst) to this file")
	explain      = flag.Bool("explain", false, "show every candidate surface for each airport whose zones include the point")
	dump         = flag.Bool("dump", false, "dump results in full")
	openURL      = flag.Bool("open", false, "open the reference pages of the airports in the results")
	lang         = flag.String("lang", "en", "language for text output: en, ja")
	jsonOutput   = flag.Bool("json", false, "write results as JSON, one object per line")
	cpuprofile   = flag.String("cpuprofile", "", "write CPU profile to file")
	memprofile   = flag.String("memprofile", "", "write memory profile to this file")
	logLevel     = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir       = flag.String("logdir", "", "log file directory")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: airlimit [flags] \"lat, lng\" ...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	lg := log.New(false, *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	profiler, err := util.CreateProfiler(*cpuprofile, *memprofile)
	if err != nil {
		lg.Errorf("%v", err)
	}
	defer profiler.Cleanup()

	if err := run(context.Background(), os.Stdout, lg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		profiler.Cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, lg *log.Logger) error {
	reg, err := aviation.OpenRegistry(ctx, *registryURI, util.RemoteConfigFromEnv(), lg)
	if err != nil {
		return err
	}
	g, err := geodesy.Lookup(*providerName)
	if err != nil {
		return err
	}
	language, err := present.ParseLanguage(*lang)
	if err != nil {
		return err
	}

	if *lint {
		lintRegistry(w, reg, g)
	}
	if *compileTo != "" {
		if err := compileRegistry(reg, *compileTo); err != nil {
			return err
		}
		lg.Infof("%s: wrote compiled registry %s", *compileTo, reg.Version)
	}

	var pts []math.Point2LL
	for _, arg := range flag.Args() {
		p, err := math.ParseLatLong([]byte(arg))
		if err != nil {
			return err
		}
		pts = append(pts, p)
	}
	if *batchFile != "" {
		bp, err := readBatchFile(*batchFile)
		if err != nil {
			return err
		}
		pts = append(pts, bp...)
	}

	if len(pts) == 0 {
		if !*lint && *compileTo == "" {
			flag.Usage()
			return fmt.Errorf("no points given")
		}
		return nil
	}

	eng := restrict.NewEngine(reg, lg)
	opts := outputOptions{JSON: *jsonOutput, Dump: *dump, Lang: language}

	if *explain {
		for _, p := range pts {
			if err := explainPoint(w, eng, p, g, opts); err != nil {
				return err
			}
		}
		return nil
	}

	results, err := eng.EvaluateBatch(ctx, pts, restrict.StaticSource(g))
	if err != nil {
		return err
	}
	if err := writeResults(w, reg, pts, results, opts); err != nil {
		return err
	}

	if *openURL {
		for _, r := range results {
			for _, l := range present.Present(r, reg, language).Links {
				if err := browser.OpenURL(l.URL); err != nil {
					lg.Warnf("%s: unable to open %s: %v", l.AirportId, l.URL, err)
				}
			}
		}
	}

	return nil
}

func readBatchFile(fn string) ([]math.Point2LL, error) {
	if fn == "-" {
		return readPoints(os.Stdin, "stdin")
	}

	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return readPoints(f, fn)
}

func compileRegistry(reg *aviation.Registry, fn string) error {
	if !strings.HasSuffix(fn, ".msgpack.zst") {
		return fmt.Errorf("%s: compiled registry filename must end in .msgpack.zst", fn)
	}

	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := reg.EncodeMsgpack(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", fn, err)
	}
	return f.Close()
}
