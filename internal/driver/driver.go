// Package driver orchestrates checking: it loads frontend-produced AST
// documents and runs semantic analysis over them, fanning units out
// across workers. Units are independent compilations; each gets its own
// type table and diagnostic bag.
package driver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"rill/internal/ast"
	"rill/internal/astio"
	"rill/internal/diag"
	"rill/internal/hir"
	"rill/internal/sema"
	"rill/internal/source"
)

// Options tunes a driver run.
type Options struct {
	// Jobs caps concurrent unit checks; 0 means GOMAXPROCS.
	Jobs int
	// MaxDiagnostics caps each unit's bag; 0 means the default of 100.
	MaxDiagnostics int
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) maxDiagnostics() int {
	if o.MaxDiagnostics > 0 {
		return o.MaxDiagnostics
	}
	return 100
}

// UnitResult is the outcome for one input path.
type UnitResult struct {
	Path   string
	Unit   *ast.Unit
	Module *hir.Module
	Sema   *sema.Context
	Bag    *diag.Bag
}

// Failed reports whether the unit produced error diagnostics.
func (r *UnitResult) Failed() bool {
	return r.Bag != nil && r.Bag.HasErrors()
}

// CheckPaths loads and checks every document, at most opts.Jobs at a
// time. The returned slice is ordered like paths. The error covers
// infrastructure failures only; semantic problems live in the bags.
func CheckPaths(ctx context.Context, paths []string, opts Options) ([]UnitResult, error) {
	results := make([]UnitResult, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs())
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = checkOne(path, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func checkOne(path string, opts Options) UnitResult {
	bag := diag.NewBag(opts.maxDiagnostics())
	res := UnitResult{Path: path, Bag: bag}
	reporter := diag.BagReporter{Bag: bag}
	sctx := sema.NewContext(reporter)
	res.Sema = sctx
	fileID := sctx.Files.Register(path)
	span := source.Span{File: fileID}

	f, err := os.Open(path)
	if err != nil {
		diag.Error(reporter, diag.InputBadDoc, span, fmt.Sprintf("cannot open %s: %v", path, err))
		return res
	}
	defer f.Close()

	unit, err := astio.Decode(f, sctx.Strings)
	if err != nil {
		reportDecodeError(reporter, span, err)
		return res
	}
	res.Unit = unit
	res.Module = sema.Check(sctx, unit)
	bag.SortStable()
	return res
}

func reportDecodeError(reporter diag.Reporter, span source.Span, err error) {
	var ve *astio.VersionError
	if errors.As(err, &ve) {
		diag.Error(reporter, diag.InputBadVersion, span, err.Error())
		return
	}
	var bad *astio.BadDocError
	if errors.As(err, &bad) {
		diag.Error(reporter, diag.InputBadNode, span, err.Error())
		return
	}
	diag.Error(reporter, diag.InputBadDoc, span, err.Error())
}

// CheckUnit analyzes one in-memory unit, for embedding and tests.
func CheckUnit(sctx *sema.Context, unit *ast.Unit) *hir.Module {
	return sema.Check(sctx, unit)
}
