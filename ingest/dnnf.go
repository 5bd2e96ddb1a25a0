package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cpogcore/cpog/z"
)

// NodeKind is one of the D4 dialect's four tag letters.
type NodeKind byte

const (
	KindTrue  NodeKind = 't'
	KindFalse NodeKind = 'f'
	KindAnd   NodeKind = 'a'
	KindOr    NodeKind = 'o'
)

// DnnfVis receives D4-dialect d-DNNF parse events.
type DnnfVis interface {
	Node(kind NodeKind, id int)
	// Edge reports an edge from parent to child, with zero or more literal
	// labels; a non-empty lits implies an implicit AND wrapper node
	// between parent and child, per spec.md §6.
	Edge(parent, child int, lits []z.Lit)
	Eof()
}

// ReadD4 parses a D4-dialect decision-DNNF text file from r.
func ReadD4(r io.Reader, vis DnnfVis) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "t", "f", "a", "o":
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("ingest: malformed node line %q: %w", line, err)
			}
			vis.Node(NodeKind(fields[0][0]), id)
		default:
			parent, err := strconv.Atoi(fields[0])
			if err != nil {
				return fmt.Errorf("ingest: malformed edge line %q: %w", line, err)
			}
			child, err := strconv.Atoi(fields[1])
			if err != nil {
				return fmt.Errorf("ingest: malformed edge line %q: %w", line, err)
			}
			var lits []z.Lit
			for _, f := range fields[2:] {
				n, err := strconv.Atoi(f)
				if err != nil {
					return fmt.Errorf("ingest: malformed edge literal %q: %w", f, err)
				}
				if n == 0 {
					break
				}
				lits = append(lits, z.Dimacs2Lit(n))
			}
			vis.Edge(parent, child, lits)
		}
	}
	vis.Eof()
	return sc.Err()
}
