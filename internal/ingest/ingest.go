// Package ingest drives file and directory ingestion: for each BUFR
// envelope found, it instantiates a decoder, expands the envelope,
// projects it into observation JSON, and collects a per-file summary.
// It generalizes the teacher's convert_gsf/convert_gsf_list pair
// (cmd/main.go in the original go-gsf) into a library the CLI can call
// for both a single file and a directory trawl.
package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/alitto/pond"
	"github.com/samber/lo"

	"github.com/metno/gobufr/internal/bufrio"
	"github.com/metno/gobufr/internal/config"
	"github.com/metno/gobufr/internal/decoder"
	"github.com/metno/gobufr/internal/logbuf"
	"github.com/metno/gobufr/internal/oscar"
	"github.com/metno/gobufr/internal/projector"
	"github.com/metno/gobufr/internal/tables"
)

// Options bundles the long-lived, shared collaborators (tables, Oscar,
// the message template, and the time-window policy) every decode needs.
// These are built once by the CLI and passed by reference into every
// DecodeFile/DecodeTrawl call, per spec.md §5's shared read-only model.
type Options struct {
	Tables   *tables.Registry
	Oscar    oscar.StationLookup
	Template json.RawMessage
	Window   config.TimeWindow
	Log      *logbuf.Buffer
}

// Summary is the cross-message QA roll-up for one file's decode,
// mirroring the teacher's QInfo (qa.go): duplicate/consistency signals
// computed with samber/lo helpers rather than hand-rolled set logic.
type Summary struct {
	Messages          int
	Subsets           int
	Observations      int
	TableVersions     []int
	DuplicateBufrIDs  []string
	ConsistentVersion bool
}

// DecodeFile opens path, reads every BUFR envelope in it with one
// bufrio.Reader + one decoder.Decoder (per spec.md §5, one decoder
// instance per file), decodes and projects each, and returns the
// collected JSON observation strings plus a Summary.
func DecodeFile(path string, opts Options) ([]string, Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Summary{}, fmt.Errorf("ingest: open %s: %w", path, err)
	}
	defer f.Close()

	return DecodeReader(f, opts)
}

// DecodeReader is DecodeFile's stream-oriented form, used directly by
// cmd/gsf-bufr's stdin mode.
func DecodeReader(r bufrio.Stream, opts Options) ([]string, Summary, error) {
	reader := bufrio.NewReader(r, opts.Log)
	dec := decoder.New(opts.Tables, opts.Log)

	var (
		out      []string
		bufrIDs  []string
		versions []int
		subsets  int
	)

	for {
		msg, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, Summary{}, fmt.Errorf("ingest: reading envelope: %w", err)
		}

		dm, err := dec.Decode(msg)
		if err != nil {
			if opts.Log != nil {
				opts.Log.Errorf("ingest", "", "decode failed, skipping message: %v", err)
			}
			continue
		}

		bufrIDs = append(bufrIDs, fmt.Sprintf("%d-%d-%d", dm.Section1.Centre, dm.Section1.DataCategory, dm.Section1.Time.Unix()))
		versions = append(versions, int(dm.Version))
		subsets += len(dm.ExpandedPerSubset)

		out = append(out, projector.Project(dm, opts.Template, opts.Oscar, opts.Window, opts.Log)...)
	}

	distinctVersions := lo.Union(versions)
	summary := Summary{
		Messages:          len(bufrIDs),
		Subsets:           subsets,
		Observations:      len(out),
		TableVersions:     distinctVersions,
		DuplicateBufrIDs:  lo.FindDuplicates(bufrIDs),
		ConsistentVersion: len(distinctVersions) <= 1,
	}
	return out, summary, nil
}

// FindBufr recursively finds files under dir matching *.bufr or *.bin,
// mirroring the teacher's FindGsf (search/search.go) but reduced from
// TileDB VFS trawling to filepath.WalkDir, since no object-store search
// is in this spec's scope (see DESIGN.md's dropped-TileDB decision).
func FindBufr(dir string) ([]string, error) {
	var items []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		for _, pattern := range []string{"*.bufr", "*.bin"} {
			if match, _ := filepath.Match(pattern, base); match {
				items = append(items, path)
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: walking %s: %w", dir, err)
	}
	return items, nil
}

// TrawlResult is one file's outcome from DecodeTrawl.
type TrawlResult struct {
	Path    string
	OutPath string
	Summary Summary
	Err     error
}

// DecodeTrawl walks dir for BUFR files, submits one decode job per file
// to a pond worker pool sized runtime.NumCPU()*2 (mirroring the teacher's
// convert_gsf_list), and writes one "<name>.jsonl" per input into outdir
// (or beside the input if outdir is empty). Each decoder instance
// stays independent per file per spec.md §5, so sharing Options (tables,
// Oscar, template, window, log) across the pool is safe.
func DecodeTrawl(dir, outdir string, opts Options) ([]TrawlResult, error) {
	files, err := FindBufr(dir)
	if err != nil {
		return nil, err
	}

	n := runtime.NumCPU() * 2
	pool := pond.New(n, 0, pond.MinWorkers(n))
	results := make([]TrawlResult, len(files))

	for i, path := range files {
		i, path := i, path
		pool.Submit(func() {
			results[i] = decodeOne(path, outdir, opts)
		})
	}
	pool.StopAndWait()

	return results, nil
}

func decodeOne(path, outdir string, opts Options) TrawlResult {
	out, summary, err := DecodeFile(path, opts)
	if err != nil {
		return TrawlResult{Path: path, Summary: summary, Err: err}
	}

	dir, file := filepath.Split(path)
	if outdir != "" {
		dir = outdir
	}
	outPath := filepath.Join(dir, trimExt(file)+".jsonl")

	if werr := writeJSONL(outPath, out); werr != nil {
		return TrawlResult{Path: path, OutPath: outPath, Summary: summary, Err: werr}
	}
	return TrawlResult{Path: path, OutPath: outPath, Summary: summary}
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

// writeJSONL writes one observation per line to path, replacing the
// teacher's TileDB-VFS-backed encode.WriteJson (encode/json.go) with a
// plain os.Create/WriteString loop since the output here is a local/NFS JSON-lines
// file, not a columnar array store (see DESIGN.md's dropped-TileDB
// decision).
func writeJSONL(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ingest: create %s: %w", path, err)
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := f.WriteString(line); err != nil {
			return err
		}
		if _, err := f.WriteString("\n"); err != nil {
			return err
		}
	}
	return nil
}
