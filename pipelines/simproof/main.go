// Simproof is an example proving pipeline implementing provebench's
// stdio phase contract. It reads a JSON phase request from stdin,
// simulates replicate/prove/verify work with a seeded cost model that
// is sensitive to sector size, tree arity, partitions, and hasher, and
// writes a JSON response to stdout. It exists so the harness can be
// exercised end to end without a real prover.
package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/bits"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type request struct {
	Phase      string            `json:"phase"`
	Parameters map[string]string `json:"parameters"`
	WorkDir    string            `json:"work_dir"`
	Seed       uint64            `json:"seed"`
}

type response struct {
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
	ElapsedNS int64  `json:"elapsed_ns,omitempty"`
}

const (
	replicaFile = "replica.dat"
	proofFile   = "proof.dat"
)

func main() {
	var req request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		fatal("decode request: %v", err)
	}

	if req.WorkDir == "" {
		fatal("request has no work_dir")
	}

	start := time.Now()
	err := runPhase(req)
	elapsed := time.Since(start)

	resp := response{OK: err == nil, ElapsedNS: elapsed.Nanoseconds()}
	if err != nil {
		resp.Reason = err.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	if encErr := enc.Encode(resp); encErr != nil {
		fatal("encode response: %v", encErr)
	}
}

func runPhase(req request) error {
	if fail := os.Getenv("SIMPROOF_FAIL"); fail == req.Phase {
		return fmt.Errorf("injected failure for phase %s", req.Phase)
	}

	cost, err := phaseCost(req)
	if err != nil {
		return err
	}

	switch req.Phase {
	case "replicate":
		return replicate(req, cost)
	case "prove":
		return prove(req, cost)
	case "verify":
		return verify(req, cost)
	default:
		return fmt.Errorf("unknown phase %q", req.Phase)
	}
}

// phaseCost derives a synthetic work duration from the parameters. The
// model is arbitrary but monotone in sector size and partitions, so
// sweeps over those axes produce plausible-looking timing gradients.
func phaseCost(req request) (time.Duration, error) {
	sectorBytes, err := parseSectorSize(req.Parameters["sector_size"])
	if err != nil {
		return 0, err
	}

	partitions := intParam(req.Parameters, "partitions", 1)
	arity := intParam(req.Parameters, "tree_arity", 2)

	hasherFactor := 1.0
	switch req.Parameters["hasher"] {
	case "sha256":
		hasherFactor = 1.6
	case "blake2s":
		hasherFactor = 1.3
	}

	depth := bits.Len64(sectorBytes) / bits.Len(uint(arity))
	if depth < 1 {
		depth = 1
	}

	base := time.Duration(depth*partitions) * time.Millisecond

	return time.Duration(float64(base) * hasherFactor), nil
}

func replicate(req request, cost time.Duration) error {
	work(req.Seed, cost)

	data := sealedData(req.Seed)

	path := filepath.Join(req.WorkDir, replicaFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write replica: %w", err)
	}

	return nil
}

func prove(req request, cost time.Duration) error {
	replica, err := os.ReadFile(filepath.Join(req.WorkDir, replicaFile))
	if err != nil {
		return fmt.Errorf("missing replica artifact: %w", err)
	}

	work(req.Seed, cost)

	proof := sha256.Sum256(replica)

	path := filepath.Join(req.WorkDir, proofFile)
	if err := os.WriteFile(path, proof[:], 0o644); err != nil {
		return fmt.Errorf("write proof: %w", err)
	}

	return nil
}

func verify(req request, cost time.Duration) error {
	proof, err := os.ReadFile(filepath.Join(req.WorkDir, proofFile))
	if err != nil {
		return fmt.Errorf("missing proof artifact: %w", err)
	}

	// Verification is cheap relative to proving.
	work(req.Seed, cost/4)

	want := sha256.Sum256(sealedData(req.Seed))
	if len(proof) != len(want) {
		return fmt.Errorf("proof has wrong length %d", len(proof))
	}

	for i := range want {
		if proof[i] != want[i] {
			return fmt.Errorf("proof does not match replica")
		}
	}

	return nil
}

// sealedData is the deterministic stand-in for a sealed replica. Kept
// small: the cost model, not the data volume, carries the timing.
func sealedData(seed uint64) []byte {
	rng := rand.New(rand.NewSource(int64(seed)))

	data := make([]byte, 64*1024)
	rng.Read(data)

	return data
}

// work burns roughly cost worth of CPU so measurements have signal.
func work(seed uint64, cost time.Duration) {
	deadline := time.Now().Add(cost)

	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seed)
	sum := sha256.Sum256(buf[:])

	for time.Now().Before(deadline) {
		sum = sha256.Sum256(sum[:])
	}

	_ = sum
}

func parseSectorSize(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("missing sector_size parameter")
	}

	multipliers := map[string]uint64{
		"KiB": 1 << 10,
		"MiB": 1 << 20,
		"GiB": 1 << 30,
	}

	for suffix, mult := range multipliers {
		if strings.HasSuffix(s, suffix) {
			n, err := strconv.ParseUint(strings.TrimSuffix(s, suffix), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("bad sector_size %q: %w", s, err)
			}

			return n * mult, nil
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad sector_size %q: %w", s, err)
	}

	return n, nil
}

func intParam(params map[string]string, key string, fallback int) int {
	v, ok := params[key]
	if !ok {
		return fallback
	}

	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}

	return n
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
