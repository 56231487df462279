package fetcher

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/crm-cleanup/internal/model"
	"github.com/sells-group/crm-cleanup/internal/normalize"
)

// Input names one export file and the system it came from.
type Input struct {
	Path   string
	Source model.Source
}

// LoadFile reads one export from disk.
func LoadFile(ctx context.Context, path string, source model.Source) ([]*model.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return LoadReader(ctx, filepath.Base(path), f, source)
}

// LoadReader parses an export read from r. The format is chosen by the
// extension of name: .xlsx is a workbook, anything else is CSV.
func LoadReader(ctx context.Context, name string, r io.Reader, source model.Source) ([]*model.Record, error) {
	var (
		recs []*model.Record
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		data, rerr := io.ReadAll(r)
		if rerr != nil {
			return nil, eris.Wrapf(rerr, "fetcher: read %s", name)
		}
		rows, xerr := ReadXLSXBytes(data, XLSXOptions{})
		if xerr != nil {
			return nil, eris.Wrapf(xerr, "fetcher: parse %s", name)
		}
		recs, err = XLSXRecords(rows)
	default:
		recs, err = ReadCSV(ctx, r)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: parse %s", name)
	}

	for _, rec := range recs {
		rec.Source = source
		rec.File = name
	}
	return recs, nil
}

// Part is an export already held in memory, such as an uploaded file.
type Part struct {
	Name   string
	Source model.Source
	Data   []byte
}

// LoadAll reads every input in parallel. Records are returned in input
// order with IDs renumbered 0..n-1 across all files. Any parse failure fails
// the whole load.
func LoadAll(ctx context.Context, inputs []Input) ([]*model.Record, []model.RunInput, error) {
	return loadParallel(ctx, len(inputs), func(ctx context.Context, i int) ([]*model.Record, model.RunInput, error) {
		in := inputs[i]
		recs, err := LoadFile(ctx, in.Path, in.Source)
		return recs, model.RunInput{Path: in.Path, Source: in.Source, Records: len(recs)}, err
	})
}

// LoadParts is LoadAll for in-memory exports.
func LoadParts(ctx context.Context, parts []Part) ([]*model.Record, []model.RunInput, error) {
	return loadParallel(ctx, len(parts), func(ctx context.Context, i int) ([]*model.Record, model.RunInput, error) {
		p := parts[i]
		recs, err := LoadReader(ctx, p.Name, bytes.NewReader(p.Data), p.Source)
		return recs, model.RunInput{Path: p.Name, Source: p.Source, Records: len(recs)}, err
	})
}

type loadFunc func(ctx context.Context, i int) ([]*model.Record, model.RunInput, error)

func loadParallel(ctx context.Context, n int, load loadFunc) ([]*model.Record, []model.RunInput, error) {
	parts := make([][]*model.Record, n)
	meta := make([]model.RunInput, n)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			recs, in, err := load(gctx, i)
			if err != nil {
				return err
			}
			parts[i], meta[i] = recs, in
			zap.L().Info("loaded input",
				zap.String("path", in.Path),
				zap.String("source", string(in.Source)),
				zap.Int("records", in.Records),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []*model.Record
	for _, recs := range parts {
		for _, rec := range recs {
			rec.ID = len(out)
			out = append(out, rec)
		}
	}
	return out, meta, nil
}

// ReadAddressList reads the sold-properties reference list from disk.
func ReadAddressList(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: open %s", path)
	}
	return ParseAddressList(ctx, filepath.Base(path), data)
}

// ParseAddressList parses a sold-properties list. A CSV or workbook with a
// recognised address column uses that column; otherwise every non-empty line
// is taken as one address.
func ParseAddressList(ctx context.Context, name string, data []byte) ([]string, error) {
	recs, err := LoadReader(ctx, name, bytes.NewReader(data), model.SourcePrimary)
	if err == nil {
		if col := addressColumn(recs); col != "" {
			var out []string
			for _, rec := range recs {
				if v := strings.TrimSpace(rec.Get(col)); v != "" {
					out = append(out, v)
				}
			}
			return out, nil
		}
	}

	var out []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", name)
	}
	return out, nil
}

func addressColumn(recs []*model.Record) string {
	if len(recs) == 0 {
		return ""
	}
	for _, f := range normalize.AddressFields {
		if recs[0].Has(f) {
			return f
		}
	}
	return ""
}
