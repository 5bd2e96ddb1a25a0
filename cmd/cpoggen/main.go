package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/cpogcore/cpog"
	"github.com/cpogcore/cpog/ingest"
	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/pog"
	"github.com/cpogcore/cpog/satx"
	"github.com/cpogcore/cpog/z"
)

var (
	multiLiteral     = flag.Bool("multi-literal", false, "bulk-validate the literal children of AND nodes")
	useLemmas        = flag.Bool("lemmas", true, "share OR-node proofs via the lemma cache")
	explicitDeletion = flag.Bool("explicit-deletion", false, "emit reverse clauses for SKOLEM nodes")
	monolithicThresh = flag.Int("monolithic-threshold", 16, "tree size below which a node is justified monolithically")
	treeRatioThresh  = flag.Float64("tree-ratio-threshold", 8.0, "tree-size/dag-size ratio above which a node is justified monolithically")
	bcpLimit         = flag.Int("bcp-limit", 10000, "bounded-BCP trail step limit")
	backend          = flag.String("backend", "cadical-lrat", "external solver backend: cadical-drat, cadical-lrat, cadical-lrat-trim, kissat-drat")
	out              = flag.String("o", "", "output file for the CPOG proof (default: stdout)")
)

func main() {
	flag.Usage = func() {
		p := os.Args[0]
		_, p = filepath.Split(p)
		fmt.Fprintf(os.Stderr, usage, p, p, p)
		flag.PrintDefaults()
		fmt.Fprintln(os.Stderr)
	}
	flag.Parse()
	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	be, err := parseBackend(*backend)
	if err != nil {
		log.Fatalf("cpoggen: %v", err)
	}

	cnfFile, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("cpoggen: %v", err)
	}
	defer cnfFile.Close()

	ld := &cnfLoader{st: store.New()}
	if err := ingest.ReadCnf(cnfFile, ld); err != nil {
		log.Fatalf("cpoggen: parsing %s: %v", flag.Arg(0), err)
	}

	dnnfFile, err := os.Open(flag.Arg(1))
	if err != nil {
		log.Fatalf("cpoggen: %v", err)
	}
	defer dnnfFile.Close()

	b := ingest.NewBuilder()
	if err := ingest.ReadD4(dnnfFile, b); err != nil {
		log.Fatalf("cpoggen: parsing %s: %v", flag.Arg(1), err)
	}
	g, root, err := b.Build(z.Var(ld.nvar))
	if err != nil {
		log.Fatalf("cpoggen: building POG: %v", err)
	}
	g.Root = root

	cfg := cpog.NewConfigVars(ld.nvar)
	cfg.MultiLiteral = *multiLiteral
	cfg.UseLemmas = *useLemmas
	cfg.ExplicitDeletion = *explicitDeletion
	cfg.MonolithicThreshold = *monolithicThresh
	cfg.TreeRatioThreshold = *treeRatioThresh
	cfg.BCPLimit = *bcpLimit
	cfg.Backend = be

	core := cpog.NewCore(cfg, ld.st, g)

	var w *bufio.Writer
	outFile := os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatalf("cpoggen: %v", err)
		}
		defer f.Close()
		outFile = f
	}
	w = bufio.NewWriter(outFile)
	defer w.Flush()

	isProj := projectionSet(ld.show)
	if err := core.Run(w, isProj); err != nil {
		log.Fatalf("cpoggen: %v", err)
	}
}

func parseBackend(s string) (satx.Backend, error) {
	switch s {
	case "cadical-drat":
		return satx.BackendCadicalDRAT, nil
	case "cadical-lrat":
		return satx.BackendCadicalLRAT, nil
	case "cadical-lrat-trim":
		return satx.BackendCadicalLRATTrim, nil
	case "kissat-drat":
		return satx.BackendKissatDRAT, nil
	default:
		return 0, fmt.Errorf("unknown backend %q", s)
	}
}

func projectionSet(show []z.Var) pog.IsProjection {
	if len(show) == 0 {
		return nil
	}
	set := map[z.Var]bool{}
	for _, v := range show {
		set[v] = true
	}
	return func(v z.Var) bool { return set[v] }
}

// cnfLoader implements ingest.CnfVis by accumulating clause literals and
// committing each finished clause straight into the store as an input
// clause, mirroring the teacher's DimacsVis-builds-a-Solver idiom in
// internal/xo's dimacs-backed constructor.
type cnfLoader struct {
	st      *store.Store
	nvar    int
	nclause int
	show    []z.Var
	cur     []z.Lit
}

func (l *cnfLoader) Init(nvar, nclauses int) { l.nvar, l.nclause = nvar, nclauses }

func (l *cnfLoader) Add(m z.Lit) {
	if m == z.LitNull {
		c := store.Canon(l.cur)
		l.st.AddInput(&c)
		l.cur = l.cur[:0]
		return
	}
	l.cur = append(l.cur, m)
}

func (l *cnfLoader) Show(vars []z.Var)    { l.show = vars }
func (l *cnfLoader) ProjType(string)      {}
func (l *cnfLoader) Eof()                 {}
