// Package harness drives an external virtual-machine executable over a
// directory of EVM assembly test cases and diffs each run against an
// expected-result document. It is pure process orchestration: the VM under
// test does the executing, the harness does the launching, capturing and
// comparing.
package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	// caseSuffix marks a test-case file holding hex-encoded EVM assembly.
	caseSuffix = ".evm.hex"

	// expectedSuffix marks the sibling document a case is compared against.
	expectedSuffix = ".expected"

	defaultCaseTimeout = 30 * time.Second
)

// Result is the triple a run is judged on, extracted from the VM's stdout or
// read from an expected-result document.
type Result struct {
	Status    string `yaml:"status"`
	ErrorCode int    `yaml:"error_code"`
	Return    string `yaml:"return"`
}

// Case is one discovered test case.
type Case struct {
	Path         string
	Name         string
	ExpectedPath string
	HasExpected  bool
}

// Stats tallies the run.
type Stats struct {
	Passed  int
	Failed  int
	Ignored int
}

// Total is the number of cases accounted for.
func (s Stats) Total() int {
	return s.Passed + s.Failed + s.Ignored
}

// Config selects the VM binary and how each case is invoked.
type Config struct {
	// Runtime is the path of the VM executable under test.
	Runtime string

	// TestDir holds the *.evm.hex cases and their .expected documents.
	TestDir string

	// Mode selects the VM execution mode (-m).
	Mode string

	// Format is passed through as --format.
	Format string

	// Filter keeps only cases whose file name contains the substring.
	Filter string

	// GasLimit is passed as --gas-limit; zero omits the flag so the VM's
	// own default applies.
	GasLimit uint64

	// Ignore lists case file names excluded from the run.
	Ignore []string

	// ExtraOptions are appended verbatim to every invocation.
	ExtraOptions []string

	EnableMultipassLazy         bool
	NumMultipassThreads         int // zero or negative means the VM's default
	DisableMultipassMultithread bool

	// CaseTimeout bounds a single VM run; zero means 30s.
	CaseTimeout time.Duration

	Verbose bool
}

// Runner executes the suite.
type Runner struct {
	cfg    Config
	log    *zap.Logger
	out    io.Writer
	ignore map[string]struct{}
	failed []Case
}

// New validates the configuration and returns a runner. The runtime must
// exist and be executable; the test directory must exist.
func New(cfg Config, log *zap.Logger) (*Runner, error) {
	if cfg.Mode == "" {
		cfg.Mode = "multipass"
	}
	if cfg.Format == "" {
		cfg.Format = "wasm"
	}
	if cfg.CaseTimeout <= 0 {
		cfg.CaseTimeout = defaultCaseTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}

	info, err := os.Stat(cfg.Runtime)
	if err != nil {
		// a bare name may refer to a binary staged under build/
		alt := filepath.Join("build", cfg.Runtime)
		if altInfo, altErr := os.Stat(alt); altErr == nil {
			cfg.Runtime, info, err = alt, altInfo, nil
		}
	}
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("runtime executable not found: %s", cfg.Runtime)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return nil, fmt.Errorf("runtime not executable: %s", cfg.Runtime)
	}
	if info, err := os.Stat(cfg.TestDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("test directory not found: %s", cfg.TestDir)
	}

	ignore := make(map[string]struct{}, len(cfg.Ignore))
	for _, name := range cfg.Ignore {
		ignore[name] = struct{}{}
	}

	return &Runner{
		cfg:    cfg,
		log:    log,
		out:    os.Stdout,
		ignore: ignore,
	}, nil
}

// SetOutput redirects the runner's progress lines, primarily for tests.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// Cases discovers the test cases in sorted order, honoring the filter.
// Ignored cases are excluded here and accounted for by Run.
func (r *Runner) Cases() ([]Case, int, error) {
	entries, err := os.ReadDir(r.cfg.TestDir)
	if err != nil {
		return nil, 0, fmt.Errorf("reading test directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), caseSuffix) {
			continue
		}
		if r.cfg.Filter != "" && !strings.Contains(entry.Name(), r.cfg.Filter) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	ignored := 0
	cases := make([]Case, 0, len(names))
	for _, name := range names {
		if _, ok := r.ignore[name]; ok {
			ignored++
			r.log.Debug("case in ignore list", zap.String("case", name))
			continue
		}
		path := filepath.Join(r.cfg.TestDir, name)
		expectedPath := strings.TrimSuffix(path, caseSuffix) + expectedSuffix
		_, err := os.Stat(expectedPath)
		cases = append(cases, Case{
			Path:         path,
			Name:         name,
			ExpectedPath: expectedPath,
			HasExpected:  err == nil,
		})
	}
	return cases, ignored, nil
}

// Args builds the VM invocation for a case.
func (r *Runner) Args(c Case) []string {
	args := []string{
		"--format", r.cfg.Format,
		"-m", r.cfg.Mode,
	}
	if r.cfg.EnableMultipassLazy {
		args = append(args, "--enable-multipass-lazy")
	}
	if r.cfg.NumMultipassThreads > 0 {
		args = append(args, "--num-multipass-threads", strconv.Itoa(r.cfg.NumMultipassThreads))
	}
	if r.cfg.DisableMultipassMultithread {
		args = append(args, "--disable-multipass-multithread")
	}
	if r.cfg.GasLimit > 0 {
		args = append(args, "--gas-limit", strconv.FormatUint(r.cfg.GasLimit, 10))
	}
	args = append(args, r.cfg.ExtraOptions...)
	args = append(args, c.Path)
	return args
}

// ParseExpected reads an expected-result document.
func ParseExpected(data []byte) (Result, error) {
	var res Result
	if err := yaml.Unmarshal(data, &res); err != nil {
		return Result{}, fmt.Errorf("parsing expected results: %w", err)
	}
	return res, nil
}

// ParseOutput extracts the result triple from the VM's stdout. A structured
// result block is preferred; otherwise the output is scanned for an
// `output: 0x<hex>` marker, and a clean run with no marker counts as a
// success with an empty return value.
func ParseOutput(stdout string) Result {
	if strings.Contains(stdout, "status:") {
		var res Result
		if err := yaml.Unmarshal([]byte(stdout), &res); err == nil && res.Status != "" {
			return res
		}
	}

	res := Result{Status: "success"}
	marker := "output: 0x"
	idx := strings.Index(stdout, marker)
	if idx < 0 {
		return res
	}
	rest := stdout[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	res.Return = strings.TrimSpace(rest)
	return res
}

// compare diffs the fields a run is judged on and names the first mismatch.
func compare(actual, expected Result) (bool, string) {
	if actual.Status != expected.Status {
		return false, fmt.Sprintf("field 'status' mismatch: expected %q, got %q", expected.Status, actual.Status)
	}
	if actual.ErrorCode != expected.ErrorCode {
		return false, fmt.Sprintf("field 'error_code' mismatch: expected %d, got %d", expected.ErrorCode, actual.ErrorCode)
	}
	if actual.Return != expected.Return {
		return false, fmt.Sprintf("field 'return' mismatch: expected %q, got %q", expected.Return, actual.Return)
	}
	return true, ""
}

// runCase executes one case and reports whether it passed. Cases without an
// expected document are ignored, not failed.
func (r *Runner) runCase(ctx context.Context, c Case, stats *Stats) {
	if !c.HasExpected {
		stats.Ignored++
		r.log.Debug("case has no expected document", zap.String("case", c.Name))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.CaseTimeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.cfg.Runtime, r.Args(c)...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		stats.Failed++
		r.failed = append(r.failed, c)
		fmt.Fprintf(r.out, "TIMEOUT %-40s\n", c.Name)
		return
	}

	expectedData, err := os.ReadFile(c.ExpectedPath)
	if err != nil {
		stats.Failed++
		r.failed = append(r.failed, c)
		fmt.Fprintf(r.out, "ERROR %-40s: %v\n", c.Name, err)
		return
	}
	expected, err := ParseExpected(expectedData)
	if err != nil {
		stats.Failed++
		r.failed = append(r.failed, c)
		fmt.Fprintf(r.out, "ERROR %-40s: %v\n", c.Name, err)
		return
	}

	actual := ParseOutput(stdout.String())
	match, mismatch := compare(actual, expected)

	if runErr == nil && match {
		stats.Passed++
		fmt.Fprintf(r.out, "PASSED %-40s (%.1fms)\n", c.Name, float64(elapsed.Microseconds())/1000)
		return
	}

	stats.Failed++
	r.failed = append(r.failed, c)
	fmt.Fprintf(r.out, "FAILED %-40s (%.1fms)\n", c.Name, float64(elapsed.Microseconds())/1000)
	if stderr.Len() > 0 {
		fmt.Fprintf(r.out, "    stderr: %s\n", strings.TrimSpace(stderr.String()))
	}
	if mismatch != "" {
		fmt.Fprintf(r.out, "    %s\n", mismatch)
	}
	if r.cfg.Verbose {
		r.log.Info("case failed",
			zap.String("case", c.Name),
			zap.Any("expected", expected),
			zap.Any("actual", actual),
			zap.Error(runErr),
		)
	}
}

// Run executes the whole suite and returns the tally. A non-nil error means
// the suite could not run at all; individual failures are counted in Stats.
func (r *Runner) Run(ctx context.Context) (Stats, error) {
	cases, ignored, err := r.Cases()
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Ignored: ignored}
	if len(cases) == 0 {
		fmt.Fprintf(r.out, "no test files found in %s\n", r.cfg.TestDir)
		return stats, nil
	}

	r.printHeader(len(cases))
	start := time.Now()
	for _, c := range cases {
		r.runCase(ctx, c, &stats)
	}
	r.printSummary(stats, time.Since(start))
	return stats, nil
}

// Failed lists the cases that did not pass, in run order.
func (r *Runner) Failed() []Case {
	return r.failed
}

func (r *Runner) printHeader(count int) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "EVM Assembly Test Runner")
	fmt.Fprintln(r.out, rule)
	fmt.Fprintf(r.out, "Runtime: %s\n", r.cfg.Runtime)
	fmt.Fprintf(r.out, "Mode: %s\n", r.cfg.Mode)
	fmt.Fprintf(r.out, "Test directory: %s\n", r.cfg.TestDir)
	fmt.Fprintf(r.out, "Test files: %d\n", count)
	if len(r.cfg.ExtraOptions) > 0 {
		fmt.Fprintf(r.out, "Extra options: %s\n", strings.Join(r.cfg.ExtraOptions, " "))
	}
	if len(r.ignore) > 0 {
		fmt.Fprintf(r.out, "Ignored tests: %d\n", len(r.ignore))
	}
	fmt.Fprintln(r.out)
}

func (r *Runner) printSummary(stats Stats, elapsed time.Duration) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, rule)
	fmt.Fprintln(r.out, "Test Summary:")
	fmt.Fprintf(r.out, "  Total:   %d\n", stats.Total())
	fmt.Fprintf(r.out, "  Passed:  %d\n", stats.Passed)
	fmt.Fprintf(r.out, "  Skipped: %d\n", stats.Ignored)
	fmt.Fprintf(r.out, "  Failed:  %d\n", stats.Failed)
	fmt.Fprintf(r.out, "  Time:    %.3fs\n", elapsed.Seconds())
	fmt.Fprintln(r.out, rule)

	if len(r.failed) > 0 {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, rule)
		fmt.Fprintln(r.out, "FAILED TEST CASES:")
		fmt.Fprintln(r.out, rule)
		for _, c := range r.failed {
			fmt.Fprintln(r.out, c.Path)
		}
		fmt.Fprintln(r.out, rule)
	}
}
