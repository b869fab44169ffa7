// Package callback runs the side-effect scripts attached to screen transitions.
//
// Scripts live in <dir>/on and <dir>/off. Every regular file in the directory
// is started without arguments, all of them concurrently. Failures are logged
// per script and never reach the caller.
package callback

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// DefaultLimit bounds how many scripts of one transition run at once.
const DefaultLimit = 8

// Result is the outcome of one script.
type Result struct {
	Script string
	Stderr string
	Err    error
}

// Runner executes transition scripts.
type Runner struct {
	dir   string
	limit int
	log   log.FieldLogger
	wg    sync.WaitGroup

	// OnResult, if set, is called after each script finishes. It may be
	// called from several goroutines at once.
	OnResult func(t logic.Transition, r Result)
}

// NewRunner creates a Runner for the scripts below dir. A limit <= 0 uses DefaultLimit.
func NewRunner(dir string, limit int, logger log.FieldLogger) *Runner {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Runner{dir: dir, limit: limit, log: logger}
}

// Run starts the scripts for t in the background and returns immediately.
func (r *Runner) Run(t logic.Transition) {
	dir := filepath.Join(r.dir, string(t))
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runDir(t, dir)
	}()
}

// Wait blocks until every started script has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) runDir(t logic.Transition, dir string) {
	r.log.Infof("Running all scripts in: %s", dir)
	scripts, err := listScripts(dir)
	if err != nil {
		r.log.WithError(err).Warn("Cannot list callback scripts")
		return
	}

	var g errgroup.Group
	g.SetLimit(r.limit)
	for _, script := range scripts {
		script := script
		r.log.Infof("  %s", filepath.Base(script))
		g.Go(func() error {
			res := runScript(script)
			if res.Err != nil || res.Stderr != "" {
				r.log.WithFields(log.Fields{
					"script": script,
					"stderr": res.Stderr,
				}).WithError(res.Err).Warn("Error during script call")
			}
			if r.OnResult != nil {
				r.OnResult(t, res)
			}
			// Errors are logged above; siblings keep running.
			return nil
		})
	}
	_ = g.Wait()
}

func listScripts(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var scripts []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		scripts = append(scripts, filepath.Join(dir, e.Name()))
	}
	return scripts, nil
}

func runScript(path string) Result {
	var stderr bytes.Buffer
	cmd := exec.Command(path)
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("run %s: %w", filepath.Base(path), err)
	}
	return Result{Script: path, Stderr: strings.TrimSpace(stderr.String()), Err: err}
}
