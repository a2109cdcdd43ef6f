// Command gsf-bufr decodes BUFR messages and projects them into E-SOH
// observation JSON, mirroring the teacher's cmd/main.go convert/
// convert-trawl command pair (github.com/sixy6e/go-gsf) generalized from
// a single-file-or-directory GSF conversion onto the BUFR decode pipeline.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/metno/gobufr/internal/config"
	"github.com/metno/gobufr/internal/ingest"
	"github.com/metno/gobufr/internal/logbuf"
	"github.com/metno/gobufr/internal/oscar"
	"github.com/metno/gobufr/internal/tables"
)

// loadTableDir scans dir for the three table-file families spec.md §6
// enumerates and loads everything it recognizes into a fresh Registry
// under version. Files it doesn't recognize as a table are ignored.
func loadTableDir(dir string, version tables.Version) (*tables.Registry, error) {
	reg := tables.NewRegistry()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("gsf-bufr: reading table dir %s: %w", dir, err)
	}

	for _, e := range entries {
		if e.IsDir() {
			if e.Name() == "codetables" {
				if err := loadECCodesCodeTables(filepath.Join(dir, e.Name()), reg, version); err != nil {
					return nil, err
				}
			}
			continue
		}

		path := filepath.Join(dir, e.Name())
		format := tables.DetectFormat(e.Name())
		lower := strings.ToLower(e.Name())

		switch {
		case strings.Contains(lower, "tableb") || lower == "element.table":
			tb, err := tables.LoadTableB(path, format)
			if err != nil {
				return nil, err
			}
			reg.AddTableB(version, tb)
		case strings.Contains(lower, "codeflag"):
			tc, err := tables.LoadTableC(path, format)
			if err != nil {
				return nil, err
			}
			reg.AddTableC(version, tc)
		case strings.Contains(lower, "tabled") || lower == "sequence.def":
			td, err := tables.LoadTableD(path, format)
			if err != nil {
				return nil, err
			}
			reg.AddTableD(version, td)
		}
	}
	return reg, nil
}

// loadECCodesCodeTables loads every file directly in dir (an ecCodes
// codetables/ directory), each one the code/flag table for a single
// descriptor, per spec.md §6's "codetables/<fxy>" ecCodes convention.
func loadECCodesCodeTables(dir string, reg *tables.Registry, version tables.Version) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("gsf-bufr: reading codetables dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		tc, err := tables.LoadTableC(filepath.Join(dir, e.Name()), tables.FormatECCodes)
		if err != nil {
			continue
		}
		reg.AddTableC(version, tc)
	}
	return nil
}

// buildOptions assembles the shared, long-lived ingest.Options (tables,
// Oscar, template, time window, log) from CLI flags, matching the
// teacher's pattern of threading cCtx.String(...) values into a single
// processing call (convert_gsf in cmd/main.go).
func buildOptions(cCtx *cli.Context) (ingest.Options, error) {
	logLevel := logbuf.Warn
	switch strings.ToLower(cCtx.String("log-level")) {
	case "trace":
		logLevel = logbuf.Trace
	case "debug":
		logLevel = logbuf.Debug
	case "info":
		logLevel = logbuf.Info
	case "error":
		logLevel = logbuf.Error
	}
	logBuf := logbuf.New(logLevel, 5000)

	version := tables.Version(cCtx.Int("table-version"))
	reg, err := loadTableDir(cCtx.String("table-dir"), version)
	if err != nil {
		return ingest.Options{}, err
	}

	var stationLookup oscar.StationLookup
	if oscarFile := cCtx.String("oscar-file"); oscarFile != "" {
		oscarReg, err := oscar.LoadRegistry(oscarFile)
		if err != nil {
			return ingest.Options{}, err
		}
		stationLookup = oscarReg
	}

	template := json.RawMessage(`{}`)
	if templateFile := cCtx.String("template"); templateFile != "" {
		data, err := os.ReadFile(templateFile)
		if err != nil {
			return ingest.Options{}, fmt.Errorf("gsf-bufr: reading template %s: %w", templateFile, err)
		}
		template = json.RawMessage(data)
	}

	return ingest.Options{
		Tables:   reg,
		Oscar:    stationLookup,
		Template: template,
		Window:   config.LoadEnv(logBuf),
		Log:      logBuf,
	}, nil
}

func writeLog(cCtx *cli.Context, logBuf *logbuf.Buffer) {
	if logBuf == nil {
		return
	}
	format := strings.ToLower(cCtx.String("log-format"))
	var rendered string
	if format == "json" {
		rendered = logBuf.RenderJSON(logbuf.Trace)
	} else {
		rendered = logBuf.RenderCSV(';', logbuf.Trace)
	}
	if rendered != "" {
		fmt.Fprint(os.Stderr, rendered)
	}
}

// decodeFile decodes a single BUFR file (or stdin when path is "-") and
// writes one JSON observation per line to stdout, mirroring the
// teacher's convert_gsf single-file conversion.
func decodeFile(cCtx *cli.Context) error {
	opts, err := buildOptions(cCtx)
	if err != nil {
		return err
	}

	path := cCtx.String("bufr-file")

	var out []string
	var summary ingest.Summary
	if path == "" || path == "-" {
		out, summary, err = ingest.DecodeReader(os.Stdin, opts)
	} else {
		log.Println("Processing BUFR:", path)
		out, summary, err = ingest.DecodeFile(path, opts)
	}
	if err != nil {
		writeLog(cCtx, opts.Log)
		return err
	}

	for _, line := range out {
		fmt.Println(line)
	}
	log.Printf("Decoded %d messages, %d subsets, %d observations\n", summary.Messages, summary.Subsets, summary.Observations)

	writeLog(cCtx, opts.Log)
	return nil
}

// decodeTrawl decodes every BUFR file under a directory, writing one
// "<name>.jsonl" per input, mirroring the teacher's convert_gsf_list
// pond-backed directory sweep.
func decodeTrawl(cCtx *cli.Context) error {
	opts, err := buildOptions(cCtx)
	if err != nil {
		return err
	}

	dir := cCtx.String("dir")
	log.Println("Searching directory:", dir)

	results, err := ingest.DecodeTrawl(dir, cCtx.String("outdir"), opts)
	if err != nil {
		writeLog(cCtx, opts.Log)
		return err
	}

	for _, r := range results {
		if r.Err != nil {
			log.Printf("Failed %s: %v\n", r.Path, r.Err)
			continue
		}
		log.Printf("Wrote %s (%d observations)\n", r.OutPath, r.Summary.Observations)
	}

	writeLog(cCtx, opts.Log)
	return nil
}

func tableFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "table-dir",
			Usage: "Directory containing BUFR table B/C/D files (WMO CSV, ecCodes, or OPERA format).",
		},
		&cli.IntFlag{
			Name:  "table-version",
			Usage: "Master table version to key the loaded tables under.",
			Value: 0,
		},
		&cli.StringFlag{
			Name:  "oscar-file",
			Usage: "Pathname to a WMO OSCAR/Surface stationSearchResults JSON export.",
		},
		&cli.StringFlag{
			Name:  "template",
			Usage: "Pathname to a message-template JSON document (see spec §6).",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Minimum log level to emit: trace/debug/info/warn/error.",
			Value: "warn",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Diagnostic log rendering: csv or json.",
			Value: "csv",
		},
	}
}

func main() {
	app := &cli.App{
		Name:  "gsf-bufr",
		Usage: "Decode WMO FM-94 BUFR messages into E-SOH observation JSON.",
		Commands: []*cli.Command{
			{
				Name:  "decode",
				Usage: "Decode a single BUFR file (or stdin) to JSON lines on stdout.",
				Flags: append(tableFlags(), &cli.StringFlag{
					Name:  "bufr-file",
					Usage: "Pathname to a BUFR file, or \"-\"/omitted for stdin.",
				}),
				Action: decodeFile,
			},
			{
				Name:  "decode-trawl",
				Usage: "Decode every BUFR file under a directory, one output file per input.",
				Flags: append(tableFlags(),
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Directory to search for *.bufr/*.bin files.",
					},
					&cli.StringFlag{
						Name:  "outdir",
						Usage: "Output directory for the decoded *.jsonl files (defaults beside each input).",
					},
				),
				Action: decodeTrawl,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
