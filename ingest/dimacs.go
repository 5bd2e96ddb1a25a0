// Package ingest implements the two input readers of spec.md §6: a DIMACS
// CNF reader (with the "c p show" / "c t pmc|pwmc" comment directives) and a
// D4-dialect decision-DNNF text reader, plus the builder that maps a parsed
// d-DNNF into a pog.Graph with topological, extension-variable numbering.
//
// Both readers follow the teacher's push-parser shape
// (github.com/irifrance/gini/dimacs: ReadCnf(io.Reader, CnfVis)) generalized
// to a line-oriented scanner so the CNF reader can recognize this format's
// comment directives, which the teacher's byte-level comment filter would
// otherwise discard unseen.
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cpogcore/cpog/z"
)

// CnfVis receives DIMACS CNF parse events, mirroring the teacher's CnfVis
// interface with two additions for this format's comment directives.
type CnfVis interface {
	Init(nvar, nclauses int)
	Add(m z.Lit) // z.LitNull terminates a clause, exactly as the teacher's vis.Add(0) does
	Show(vars []z.Var)
	ProjType(kind string) // "pmc" or "pwmc"
	Eof()
}

// ReadCnf parses a DIMACS CNF file from r, dispatching to vis.
func ReadCnf(r io.Reader, vis CnfVis) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	inited := false
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "c p show"):
			if err := parseShow(line, vis); err != nil {
				return err
			}
		case strings.HasPrefix(line, "c t "):
			vis.ProjType(strings.TrimSpace(strings.TrimPrefix(line, "c t ")))
		case line[0] == 'c':
			continue
		case strings.HasPrefix(line, "p cnf"):
			nv, nc, err := parseProblemLine(line)
			if err != nil {
				return err
			}
			vis.Init(nv, nc)
			inited = true
		default:
			if !inited {
				return fmt.Errorf("ingest: clause line before problem line: %q", line)
			}
			if err := parseClauseLine(line, vis); err != nil {
				return err
			}
		}
	}
	vis.Eof()
	return sc.Err()
}

func parseProblemLine(line string) (int, int, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "p" || fields[1] != "cnf" {
		return 0, 0, fmt.Errorf("ingest: malformed problem line %q", line)
	}
	nv, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, err
	}
	nc, err := strconv.Atoi(fields[3])
	if err != nil {
		return 0, 0, err
	}
	return nv, nc, nil
}

func parseShow(line string, vis CnfVis) error {
	fields := strings.Fields(line)
	var vars []z.Var
	for _, f := range fields[3:] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("ingest: malformed show directive %q: %w", line, err)
		}
		if n == 0 {
			break
		}
		vars = append(vars, z.Var(n))
	}
	vis.Show(vars)
	return nil
}

func parseClauseLine(line string, vis CnfVis) error {
	for _, f := range strings.Fields(line) {
		n, err := strconv.Atoi(f)
		if err != nil {
			return fmt.Errorf("ingest: malformed literal %q: %w", f, err)
		}
		vis.Add(z.Dimacs2Lit(n))
	}
	return nil
}
