package smt

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// #region backend
// Backend runs one SMT-LIB script. Implementations honour ctx and wrap
// ErrBackendUnavailable, ErrTimeout or ErrResourceLimit where they apply.
type Backend interface {
	Check(ctx context.Context, script string) (Response, error)
}

// Response is the parsed solver answer.
type Response struct {
	Status string // sat, unsat or unknown
	Core   []string
	Model  map[string]string
	Reason string
}

// #endregion backend

// #region z3-exec
// Z3Exec runs `z3 -in -smt2` as a subprocess per query.
type Z3Exec struct {
	Binary   string // defaults to z3 on PATH
	MemoryMB int
}

// Check pipes script into z3. The context deadline becomes z3's -T limit
// and also kills the process.
func (z Z3Exec) Check(ctx context.Context, script string) (Response, error) {
	bin, err := resolveZ3Binary(z.Binary)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	args := []string{"-in", "-smt2"}
	if deadline, ok := ctx.Deadline(); ok {
		secs := int(math.Ceil(time.Until(deadline).Seconds()))
		if secs < 1 {
			secs = 1
		}
		args = append(args, "-T:"+strconv.Itoa(secs))
	}
	if z.MemoryMB > 0 {
		args = append(args, "-memory:"+strconv.Itoa(z.MemoryMB))
	}
	// #nosec G204 -- bin is restricted to z3/z3.exe by resolveZ3Binary.
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdin = strings.NewReader(script)
	cmd.WaitDelay = 100 * time.Millisecond
	out, runErr := cmd.Output()
	if ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Response{}, ErrTimeout
		}
		return Response{}, ctx.Err()
	}
	resp, perr := parseOutput(string(out))
	if resp.Status == "" {
		if runErr != nil {
			return Response{}, fmt.Errorf("z3 exec failed: %w", runErr)
		}
		return Response{}, fmt.Errorf("z3 produced no status: %v", perr)
	}
	if resp.Status == "unknown" {
		switch r := strings.ToLower(resp.Reason); {
		case strings.Contains(r, "timeout"), strings.Contains(r, "canceled"):
			return resp, ErrTimeout
		case strings.Contains(r, "memout"), strings.Contains(r, "memory"):
			return resp, ErrResourceLimit
		}
	}
	return resp, nil
}

func resolveZ3Binary(raw string) (string, error) {
	bin := strings.TrimSpace(raw)
	if bin == "" {
		bin = "z3"
	}
	if strings.ContainsAny(bin, " \t\n\r") {
		return "", errors.New("invalid z3 binary path")
	}
	base := filepath.Base(bin)
	if base != "z3" && base != "z3.exe" {
		return "", fmt.Errorf("unsupported z3 binary %q", base)
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return "", fmt.Errorf("z3 binary not found: %w", err)
	}
	return resolved, nil
}

// #endregion z3-exec

// #region parse
// parseOutput reads the answers to check-sat, get-unsat-core, get-model
// and get-info :reason-unknown, skipping the error each irrelevant
// command produces.
func parseOutput(out string) (Response, error) {
	items, err := readAll(out)
	var resp Response
	for _, it := range items {
		if !it.isList {
			switch it.atom {
			case "sat", "unsat", "unknown":
				if resp.Status == "" {
					resp.Status = it.atom
				}
			}
			continue
		}
		switch it.head() {
		case "error":
			continue
		case ":reason-unknown":
			if len(it.list) > 1 {
				resp.Reason = unquote(it.list[1].atom)
			}
			continue
		case "model":
			resp.Model = readModel(it.list[1:])
			continue
		}
		if isModel(it) {
			resp.Model = readModel(it.list)
			continue
		}
		if resp.Status == "unsat" && resp.Core == nil && allAtoms(it) {
			resp.Core = []string{}
			for _, a := range it.list {
				resp.Core = append(resp.Core, a.atom)
			}
		}
	}
	return resp, err
}

func isModel(s sexp) bool {
	if len(s.list) == 0 {
		return false
	}
	for _, x := range s.list {
		if x.head() != "define-fun" {
			return false
		}
	}
	return true
}

// readModel keeps nullary define-funs: the values a counterexample assigns
// to constants.
func readModel(defs []sexp) map[string]string {
	m := map[string]string{}
	for _, d := range defs {
		if d.head() != "define-fun" || len(d.list) != 5 {
			continue
		}
		if params := d.list[2]; !params.isList || len(params.list) != 0 {
			continue
		}
		m[d.list[1].atom] = d.list[4].String()
	}
	return m
}

func allAtoms(s sexp) bool {
	for _, x := range s.list {
		if x.isList {
			return false
		}
	}
	return true
}

// #endregion parse
