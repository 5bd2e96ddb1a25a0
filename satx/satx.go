// Package satx drives the external SAT/DRAT/LRAT pipeline as a subprocess,
// per spec.md §5: the subprocess is a pure function from (CNF file on disk)
// to (proof file on disk); temporary files are owned and released per call.
// Grounded on the teacher's subprocess-driving idiom in bench/instrun.go
// (temp-directory lifecycle, os/exec invocation, captured stdout/stderr).
package satx

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/cpogcore/cpog/internal/store"
	"github.com/cpogcore/cpog/z"
)

// Backend selects which external solver/proof-format combination to
// invoke, mirroring original_source/cpog/generator/clausal.hh's SOLVER
// macro options.
type Backend int

const (
	BackendCadicalDRAT Backend = iota
	BackendCadicalLRAT
	BackendCadicalLRATTrim
	BackendKissatDRAT
)

func (b Backend) solverPath() string {
	switch b {
	case BackendKissatDRAT:
		return "kissat"
	default:
		return "cadical"
	}
}

// Driver owns the executable paths used to run the external pipeline.
type Driver struct {
	Backend    Backend
	SolverPath string // overrides Backend's default lookup path if set
	LratTrimPath string
	TmpDir     string
}

// NewDriver creates a driver for backend, using os.TempDir() for scratch files.
func NewDriver(backend Backend) *Driver {
	return &Driver{Backend: backend, TmpDir: os.TempDir()}
}

func (d *Driver) solverPath() string {
	if d.SolverPath != "" {
		return d.SolverPath
	}
	return d.Backend.solverPath()
}

// Step is one LRAT proof step: a clause addition with its literals and the
// hint clause ids it cites (in the subprocess's own numbering).
type Step struct {
	ID     int
	Lits   []z.Lit
	Hints  []int
	Delete bool
	DelIDs []int
}

// Run writes cnf to a temporary file, invokes the configured backend,
// parses the proof file it wrote as LRAT, and returns the step sequence
// with the temporary files removed afterward. No trimming stage runs:
// LratTrimPath is not used, BackendCadicalLRATTrim runs exactly like
// BackendCadicalLRAT, and a DRAT backend's output is parsed as LRAT as-is.
func (d *Driver) Run(cnf []*store.Clause) ([]Step, error) {
	cnfFile, err := os.CreateTemp(d.TmpDir, "cpog-*.cnf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(cnfFile.Name())
	defer cnfFile.Close()
	if err := writeDIMACS(cnfFile, cnf); err != nil {
		return nil, err
	}
	cnfFile.Close()

	proofFile, err := os.CreateTemp(d.TmpDir, "cpog-*.lrat")
	if err != nil {
		return nil, err
	}
	proofPath := proofFile.Name()
	proofFile.Close()
	defer os.Remove(proofPath)

	if err := d.invoke(cnfFile.Name(), proofPath); err != nil {
		return nil, err
	}

	f, err := os.Open(proofPath)
	if err != nil {
		return nil, fmt.Errorf("satx: backend produced no output file: %w", err)
	}
	defer f.Close()
	return parseLRAT(f)
}

func (d *Driver) invoke(cnfPath, proofPath string) error {
	var args []string
	switch d.Backend {
	case BackendCadicalDRAT:
		args = []string{cnfPath, proofPath, "--no-binary"}
	case BackendCadicalLRAT, BackendCadicalLRATTrim:
		args = []string{cnfPath, proofPath, "--lrat", "--no-binary"}
	case BackendKissatDRAT:
		args = []string{cnfPath, proofPath}
	}
	cmd := exec.Command(d.solverPath(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && (exitErr.ExitCode() == 10 || exitErr.ExitCode() == 20) {
			// solver convention: 10 means SAT, 20 UNSAT; neither is an
			// invocation failure for our purposes (we only care about the
			// emitted proof file).
			return nil
		}
		return fmt.Errorf("satx: %s failed: %w: %s", d.solverPath(), err, out)
	}
	return nil
}

// RunDRAT behaves like Run, but invokes the backend's proof-emitting
// (hintless) DRAT mode instead of LRAT, for reduce_run's small-problem path
// (ii): the caller RUP-validates each returned clause itself rather than
// trusting emitted hints.
func (d *Driver) RunDRAT(cnf []*store.Clause) ([]Step, error) {
	cnfFile, err := os.CreateTemp(d.TmpDir, "cpog-*.cnf")
	if err != nil {
		return nil, err
	}
	defer os.Remove(cnfFile.Name())
	defer cnfFile.Close()
	if err := writeDIMACS(cnfFile, cnf); err != nil {
		return nil, err
	}
	cnfFile.Close()

	proofFile, err := os.CreateTemp(d.TmpDir, "cpog-*.drat")
	if err != nil {
		return nil, err
	}
	proofPath := proofFile.Name()
	proofFile.Close()
	defer os.Remove(proofPath)

	dratDriver := &Driver{Backend: d.dratBackend(), SolverPath: d.SolverPath, TmpDir: d.TmpDir}
	if err := dratDriver.invoke(cnfFile.Name(), proofPath); err != nil {
		return nil, err
	}

	f, err := os.Open(proofPath)
	if err != nil {
		return nil, fmt.Errorf("satx: backend produced no output file: %w", err)
	}
	defer f.Close()
	return parseDRAT(f)
}

// dratBackend maps an LRAT-flavored backend to its DRAT-producing
// counterpart from the same solver family.
func (d *Driver) dratBackend() Backend {
	switch d.Backend {
	case BackendKissatDRAT:
		return BackendKissatDRAT
	default:
		return BackendCadicalDRAT
	}
}

func writeDIMACS(out io.Writer, cnf []*store.Clause) error {
	w := bufio.NewWriter(out)
	maxVar := 0
	for _, c := range cnf {
		for _, l := range c.Lits {
			if v := int(l.Var()); v > maxVar {
				maxVar = v
			}
		}
	}
	if _, err := fmt.Fprintf(w, "p cnf %d %d\n", maxVar, len(cnf)); err != nil {
		return err
	}
	for _, c := range cnf {
		for _, l := range c.Lits {
			if _, err := fmt.Fprintf(w, "%d ", l.Dimacs()); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "0"); err != nil {
			return err
		}
	}
	return w.Flush()
}

// parseLRAT parses the standard LRAT text format: each line is
// `<id> <lits...> 0 <hints...> 0` for an addition, or `<id> d <ids...> 0`
// for a deletion.
func parseLRAT(r io.Reader) ([]Step, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var steps []Step
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("satx: malformed lrat line %q: %w", line, err)
		}
		if len(fields) > 1 && fields[1] == "d" {
			var delIDs []int
			for _, f := range fields[2:] {
				n, _ := strconv.Atoi(f)
				if n == 0 {
					break
				}
				delIDs = append(delIDs, n)
			}
			steps = append(steps, Step{ID: id, Delete: true, DelIDs: delIDs})
			continue
		}
		rest := fields[1:]
		var lits []z.Lit
		i := 0
		for ; i < len(rest); i++ {
			n, err := strconv.Atoi(rest[i])
			if err != nil {
				return nil, fmt.Errorf("satx: malformed lrat literal %q: %w", rest[i], err)
			}
			if n == 0 {
				i++
				break
			}
			lits = append(lits, z.Dimacs2Lit(n))
		}
		var hints []int
		for ; i < len(rest); i++ {
			n, err := strconv.Atoi(rest[i])
			if err != nil {
				return nil, fmt.Errorf("satx: malformed lrat hint %q: %w", rest[i], err)
			}
			if n == 0 {
				break
			}
			hints = append(hints, n)
		}
		steps = append(steps, Step{ID: id, Lits: lits, Hints: hints})
	}
	return steps, sc.Err()
}

// parseDRAT parses the DRAT text format: each line is either a deletion
// ("d lit... 0") or an addition ("lit... 0"). DRAT carries no explicit ids
// or hints, so ids are assigned by line order.
func parseDRAT(r io.Reader) ([]Step, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var steps []Step
	id := 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "c") {
			continue
		}
		fields := strings.Fields(line)
		del := false
		if fields[0] == "d" {
			del = true
			fields = fields[1:]
		}
		var lits []z.Lit
		for _, f := range fields {
			n, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("satx: malformed drat literal %q: %w", f, err)
			}
			if n == 0 {
				break
			}
			lits = append(lits, z.Dimacs2Lit(n))
		}
		id++
		steps = append(steps, Step{ID: id, Lits: lits, Delete: del})
	}
	return steps, sc.Err()
}
