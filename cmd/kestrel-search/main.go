// Command kestrel-search builds a small on-disk index from a TSV file
// and runs ranked queries against it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/rs/xid"
	sglog "github.com/sourcegraph/log"

	"github.com/kestrelsearch/kestrel"
	"github.com/kestrelsearch/kestrel/boltstore"
	"github.com/kestrelsearch/kestrel/internal/fixture"
	"github.com/kestrelsearch/kestrel/query"
	"github.com/kestrelsearch/kestrel/rank"
	"github.com/kestrelsearch/kestrel/search"
)

var logger sglog.Logger

func main() {
	liblog := sglog.Init(sglog.Resource{Name: "kestrel-search"})
	defer liblog.Sync()
	logger = sglog.Scoped("kestrel-search", "")

	root := &ffcli.Command{
		Name:       "kestrel-search",
		ShortUsage: "kestrel-search <subcommand> [flags]",
		Subcommands: []*ffcli.Command{
			buildCmd(),
			queryCmd(),
		},
		Exec: func(ctx context.Context, args []string) error {
			return flag.ErrHelp
		},
	}

	if err := root.Parse(os.Args[1:]); err != nil {
		logger.Fatal("parse flags", sglog.Error(err))
	}
	if err := root.Run(context.Background()); err != nil {
		logger.Fatal("run", sglog.Error(err))
	}
}

// buildCmd constructs an index file from a tab-separated input: the
// first line names the columns, every following line is one document.
func buildCmd() *ffcli.Command {
	fs := flag.NewFlagSet("kestrel-search build", flag.ExitOnError)
	out := fs.String("out", "index.db", "path to write the index to")
	facets := fs.String("facets", "", "comma-separated list of columns to index as facets instead of full text")

	return &ffcli.Command{
		Name:       "build",
		ShortUsage: "kestrel-search build [flags] <input.tsv>",
		ShortHelp:  "build an index from a tab-separated document file",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one input file")
			}
			start := time.Now()
			buildID := xid.New()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
			if len(lines) == 0 {
				return fmt.Errorf("empty input")
			}
			header := strings.Split(lines[0], "\t")

			facetFields := make(map[string]bool)
			for _, f := range strings.Split(*facets, ",") {
				if f != "" {
					facetFields[f] = true
				}
			}

			var rows []fixture.Row
			for i, line := range lines[1:] {
				rows = append(rows, fixture.Row{
					ID:     kestrel.DocID(i + 1),
					Fields: strings.Split(line, "\t"),
				})
			}

			if err := fixture.Build(*out, header, rows, facetFields); err != nil {
				return err
			}

			logger.Info("built index",
				sglog.String("build_id", buildID.String()),
				sglog.Int("documents", len(rows)),
				sglog.String("elapsed", humanize.RelTime(start, time.Now(), "", "")),
				sglog.String("path", *out))
			return nil
		},
	}
}

// queryCmd runs one ranked query against an index built by buildCmd
// and prints matching document ids in rank order.
func queryCmd() *ffcli.Command {
	fs := flag.NewFlagSet("kestrel-search query", flag.ExitOnError)
	index := fs.String("index", "index.db", "path to the index file")
	limit := fs.Int("limit", 20, "maximum number of results")
	offset := fs.Int("offset", 0, "number of leading results to skip")
	criteria := fs.String("criteria", "", "comma-separated criterion descriptors, overriding the default order")

	return &ffcli.Command{
		Name:       "query",
		ShortUsage: "kestrel-search query [flags] <term>...",
		ShortHelp:  "run a ranked query against an index",
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("expected at least one query term")
			}
			start := time.Now()

			store, err := boltstore.Open(*index)
			if err != nil {
				return err
			}
			defer store.Close()

			txn, err := store.Begin()
			if err != nil {
				return err
			}
			defer txn.Rollback()

			storeCtx, err := search.NewStoreContext(txn, nil)
			if err != nil {
				return err
			}

			tree := queryTreeFromArgs(args)
			descriptors := rank.DefaultDescriptors()
			if *criteria != "" {
				descriptors, err = rank.ParseDescriptors(nil, strings.Split(*criteria, ","))
				if err != nil {
					return err
				}
			}

			wdcache := query.NewDerivationsCache(noDerivations{})
			it, err := search.Search(storeCtx, wdcache, tree, descriptors, storeCtx, search.Options{
				Offset: *offset,
				Limit:  *limit,
			})
			if err != nil {
				return err
			}

			count := 0
			for {
				id, _, ok := it.Next()
				if !ok {
					break
				}
				fmt.Println(strconv.FormatUint(uint64(id), 10))
				count++
			}
			if err := it.Err(); err != nil {
				return err
			}

			logger.Info("query complete",
				sglog.Int("results", count),
				sglog.Int("corpus_size", txn.DocumentCount()),
				sglog.String("elapsed", humanize.RelTime(start, time.Now(), "", "")))
			return nil
		},
	}
}

func queryTreeFromArgs(args []string) query.Operation {
	if len(args) == 1 {
		return &query.Word{Term: strings.ToLower(args[0])}
	}
	children := make([]query.Operation, len(args))
	for i, a := range args {
		children[i] = &query.Word{Term: strings.ToLower(a)}
	}
	return &query.And{Children: children}
}

// noDerivations refuses every typo-tolerant lookup: the terms
// automaton that would answer them belongs to the indexer, which this
// command line does not implement.
type noDerivations struct{}

func (noDerivations) Derive(term string, maxTypos int, prefix bool) ([]query.Derivation, error) {
	return nil, nil
}
