// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package loop

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/taskcage/taskcage/internal/safefs"
	"github.com/taskcage/taskcage/internal/safety"
	"github.com/taskcage/taskcage/internal/safevcs"
	"github.com/taskcage/taskcage/internal/sandboxrunner"
	"github.com/taskcage/taskcage/internal/scanner"
	"github.com/taskcage/taskcage/internal/task"
)

// zstdSpillThreshold is the size above which a spilled verify stream
// is zstd-compressed before being written under logs/. Below it, the
// cost of compression isn't worth the saved bytes.
const zstdSpillThreshold = 64 * 1024

// Loop runs the end-to-end task lifecycle against a single handoff
// root, one task at a time.
type Loop struct {
	cfg Config
}

// New returns a Loop for cfg. Callers must have already created cfg.Dirs
// (see Dirs.Ensure).
func New(cfg Config) *Loop {
	return &Loop{cfg: cfg}
}

// Run acquires the worker lock and processes passes continuously,
// sleeping cfg.PollInterval between them, until ctx is cancelled, a
// failed task with stop_on_failure halts the outer loop, or a
// pre-flight/infrastructure error occurs. The worker lock is released
// before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	if err := sandboxrunner.Preflight(l.cfg.Engine, l.cfg.Image); err != nil {
		return err
	}

	lockPath := l.cfg.Dirs.WorkerLockPath()
	if err := safety.AcquireLock(lockPath, ""); err != nil {
		if errors.Is(err, safety.ErrLockHeld) {
			return fmt.Errorf("loop: worker lock held: %w", err)
		}
		return fmt.Errorf("loop: acquiring worker lock: %w", err)
	}
	defer safety.ReleaseLock(lockPath)

	logger := l.cfg.logger()
	for {
		if ctx.Err() != nil {
			return nil
		}

		halt, err := l.runPass(ctx)
		if err != nil {
			return err
		}
		if halt {
			logger.Info("stop_on_failure halted the loop")
			return nil
		}

		select {
		case <-ctx.Done():
			return nil
		case <-l.cfg.clock().After(l.cfg.pollInterval()):
		}
	}
}

// RunOnce acquires the worker lock, processes a single pass over
// tasks/, and returns. Used for the single-pass idempotence tests and
// the "run --once" CLI mode.
func (l *Loop) RunOnce(ctx context.Context) error {
	if err := sandboxrunner.Preflight(l.cfg.Engine, l.cfg.Image); err != nil {
		return err
	}

	lockPath := l.cfg.Dirs.WorkerLockPath()
	if err := safety.AcquireLock(lockPath, ""); err != nil {
		if errors.Is(err, safety.ErrLockHeld) {
			return fmt.Errorf("loop: worker lock held: %w", err)
		}
		return fmt.Errorf("loop: acquiring worker lock: %w", err)
	}
	defer safety.ReleaseLock(lockPath)

	_, err := l.runPass(ctx)
	return err
}

// runPass enumerates tasks/ once, disposes of schema-invalid entries,
// and processes every valid task in priority order. It returns
// halt=true if a task failed with stop_on_failure set, in which case
// the caller must not start another pass.
func (l *Loop) runPass(ctx context.Context) (halt bool, err error) {
	dirs := l.cfg.Dirs
	logger := l.cfg.logger()

	valid, invalid, err := enumerate(dirs)
	if err != nil {
		return false, fmt.Errorf("loop: enumerating tasks: %w", err)
	}

	for _, inv := range invalid {
		logger.Warn("schema_invalid task rejected", "id", inv.id, "error", inv.err)
		if writeErr := l.rejectInvalid(inv); writeErr != nil {
			logger.Error("failed to record schema_invalid result", "id", inv.id, "error", writeErr)
		}
	}

	for _, cand := range valid {
		if ctx.Err() != nil {
			return false, nil
		}

		processed, taskHalt, err := l.processTask(ctx, cand)
		if err != nil {
			return false, fmt.Errorf("loop: processing task %s: %w", cand.task.ID, err)
		}
		if !processed {
			continue
		}
		if taskHalt {
			return true, nil
		}
	}

	return false, nil
}

// rejectInvalid records a schema_invalid result for a task file that
// failed to parse or validate, then deletes the offending file.
func (l *Loop) rejectInvalid(inv invalidEntry) error {
	dirs := l.cfg.Dirs
	now := l.cfg.clock().Now()
	result := task.Result{
		TaskID:      inv.id,
		Status:      task.StatusError,
		ExitPath:    task.ExitSchemaInvalid,
		Reason:      inv.err.Error(),
		StartedAt:   now,
		CompletedAt: now,
	}
	data, err := task.MarshalCanonical(result)
	if err != nil {
		return err
	}
	if err := safefs.WriteAtomic(dirs.ResultFilePath(inv.id), data, dirs.Root); err != nil {
		return err
	}
	return safefs.Unlink(dirs.TaskFilePath(inv.id), dirs.Root)
}

// processTask runs one task through the full state machine. processed
// is false when the task was skipped before being claimed (already
// has a result, or another operator holds its lock) — in that case no
// result is written and no state changes. halt is true when the task
// failed and stop_on_failure was set, meaning the outer loop must stop
// rather than start the next task.
func (l *Loop) processTask(ctx context.Context, cand candidate) (processed bool, halt bool, err error) {
	dirs := l.cfg.Dirs
	t := cand.task
	logger := l.cfg.logger().With("task_id", t.ID)

	// ii. Idempotency check.
	if safety.HasResult(dirs.Results, t.ID, dirs.Root) {
		logger.Info("skipping task, result already exists")
		return false, false, nil
	}

	// iii. Acquire task lock.
	lockPath := dirs.TaskLockPath(t.ID)
	if lockErr := safety.AcquireLock(lockPath, t.ID); lockErr != nil {
		if errors.Is(lockErr, safety.ErrLockHeld) {
			logger.Info("task lock held by another operator, skipping")
			return false, false, nil
		}
		return false, false, fmt.Errorf("acquiring task lock: %w", lockErr)
	}

	started := l.cfg.clock().Now()
	run := &taskRun{
		loop:    l,
		dirs:    dirs,
		task:    t,
		logger:  logger,
		started: started,
	}
	result, haltAfter := run.execute(ctx)
	result.StartedAt = started
	result.CompletedAt = l.cfg.clock().Now()
	result.DurationMS = result.CompletedAt.Sub(started).Milliseconds()
	result.TaskSnapshot = t
	result.TaskID = t.ID

	if writeErr := run.finish(result); writeErr != nil {
		return true, false, fmt.Errorf("finishing task %s: %w", t.ID, writeErr)
	}
	return true, haltAfter, nil
}

// taskRun carries the mutable state accumulated while processing a
// single claimed task: its worktree path (once created) and whether
// it has already been moved into running/.
type taskRun struct {
	loop   *Loop
	dirs   Dirs
	task   task.Task
	logger interface {
		Info(string, ...any)
		Warn(string, ...any)
		Error(string, ...any)
	}
	started time.Time

	movedToRunning bool
	wsPath         string
}

// execute runs steps iv through xii and returns the result to write.
// It never writes the result itself or releases the lock — finish
// does that uniformly for every exit path.
func (r *taskRun) execute(ctx context.Context) (task.Result, bool) {
	cfg := r.loop.cfg
	id := r.task.ID

	// iv. Atomically move the task file into running/.
	if err := safefs.Rename(r.dirs.TaskFilePath(id), r.dirs.RunningFilePath(id), r.dirs.Root); err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("moving task to running: %w", err)), false
	}
	r.movedToRunning = true

	targetRepo := safevcs.NewRepository(cfg.TargetRepo)

	// v. Dirty-repo check.
	status, err := targetRepo.Status(ctx)
	if err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("checking target repo status: %w", err)), false
	}
	if cleanErr := safety.CheckClean(status); cleanErr != nil {
		return r.refusalResult(task.ExitRepoDirty, cleanErr), false
	}

	// vi. Create per-task worktree, computing the auto-branch.
	currentBranch, err := targetRepo.CurrentBranch(ctx)
	if err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("reading current branch: %w", err)), false
	}
	branch := safety.BranchFor(currentBranch, id)
	wsPath := r.dirs.WorktreePath(id)
	if err := targetRepo.WorktreeAdd(ctx, wsPath, branch); err != nil {
		return r.refusalResult(task.ExitBranchCheckoutFailed, err), false
	}
	r.wsPath = wsPath
	wsRepo := safevcs.NewRepository(wsPath)

	// Capture the starting commit before the executor gets a chance to
	// mutate the tree, so commit_before always names what the worktree
	// was cut from rather than something the executor produced.
	commitBefore, err := wsRepo.RevParseHead(ctx)
	if err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("reading worktree HEAD: %w", err)), false
	}

	runner := sandboxrunner.New(cfg.Engine)

	// vii. Invoke the AI executor inside the sandbox.
	executorResult, err := runner.Run(ctx, sandboxrunner.RunSpec{
		Engine:   cfg.Engine,
		Image:    cfg.Image,
		Worktree: wsPath,
		Command:  cfg.ExecutorCommand,
		UID:      os.Getuid(),
		GID:      os.Getgid(),
		Timeout:  cfg.ExecutorTimeout,
	})
	if err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("invoking executor: %w", err)), false
	}

	// Scan unconditionally, before classifying timeout/crash/success —
	// a crashing or hanging executor can still have echoed a secret,
	// and that must take priority over opencode_timeout/opencode_crashed.
	stdoutMatches, stderrMatches := scanStreams(executorResult.Stdout, executorResult.Stderr)
	if len(stdoutMatches)+len(stderrMatches) > 0 {
		return r.secretResult(append(stdoutMatches, stderrMatches...)), false
	}
	if executorResult.TimedOut {
		return r.refusalResult(task.ExitOpencodeTimeout, errors.New("executor timed out")), false
	}
	if executorResult.ExitCode != 0 {
		return r.refusalResult(task.ExitOpencodeCrashed, fmt.Errorf("executor exited %d", executorResult.ExitCode)), false
	}

	// viii. Run each verify entry in order, scanning both streams.
	var verifications []task.VerificationResult
	allPassed := true
	var logPath string
	for i, v := range r.task.Verify {
		command := append([]string{v.Cmd}, v.Args...)
		verifyResult, err := runner.Run(ctx, sandboxrunner.RunSpec{
			Engine:   cfg.Engine,
			Image:    cfg.Image,
			Worktree: wsPath,
			Command:  command,
			UID:      os.Getuid(),
			GID:      os.Getgid(),
			Timeout:  time.Duration(v.TimeoutSec) * time.Second,
		})
		if err != nil {
			return r.errorResult(task.ExitInternalError, fmt.Errorf("invoking verify[%d]: %w", i, err)), false
		}

		stdoutMatches, stderrMatches := scanStreams(verifyResult.Stdout, verifyResult.Stderr)
		if len(stdoutMatches)+len(stderrMatches) > 0 {
			return r.secretResult(append(stdoutMatches, stderrMatches...)), false
		}

		truncated := false
		if spilled, path, err := r.spillIfOverCap(id, i, "stdout", verifyResult.Stdout); err != nil {
			return r.errorResult(task.ExitInternalError, err), false
		} else if spilled {
			truncated = true
			logPath = path
		}
		if spilled, path, err := r.spillIfOverCap(id, i, "stderr", verifyResult.Stderr); err != nil {
			return r.errorResult(task.ExitInternalError, err), false
		} else if spilled {
			truncated = true
			logPath = path
		}

		passed := !verifyResult.TimedOut && verifyResult.ExitCode == v.ExpectedExit
		if !passed {
			allPassed = false
		}
		verifications = append(verifications, task.VerificationResult{
			Cmd:             v.Cmd,
			Args:            v.Args,
			ExitCode:        verifyResult.ExitCode,
			ExpectedExit:    v.ExpectedExit,
			Passed:          passed,
			DurationMS:      verifyResult.DurationMS,
			OutputTruncated: truncated,
		})
	}

	// x. Scope check (folding the secretless-filename policy in as a
	// specialized scope failure — neither the teacher nor the spec's
	// error enum carves out a distinct exit_path for it).
	wsStatus, err := wsRepo.Status(ctx)
	if err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("reading worktree status: %w", err)), false
	}
	changed := wsStatus.ChangedFiles()
	sort.Strings(changed)

	if filenameErr := safety.CheckFilenames(changed); filenameErr != nil {
		return r.refusalResult(task.ExitScopeViolation, filenameErr), false
	}
	if scopeErr := safety.CheckScope(r.task.Scope, changed); scopeErr != nil {
		return r.refusalResult(task.ExitScopeViolation, scopeErr), false
	}

	// xi. Produce the patch.
	if err := wsRepo.AddAll(ctx); err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("staging worktree changes: %w", err)), false
	}
	diff, err := wsRepo.Diff(ctx, true)
	if err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("diffing worktree: %w", err)), false
	}
	if err := safefs.WriteAtomic(r.dirs.PatchFilePath(id), []byte(diff), r.dirs.Root); err != nil {
		return r.errorResult(task.ExitInternalError, fmt.Errorf("writing patch: %w", err)), false
	}

	// Commit the staged changes in the worktree so commit_after names
	// something concrete; a task whose scope produced no file changes
	// has nothing to commit and leaves commit_after empty.
	var commitAfter string
	if len(changed) > 0 {
		if err := wsRepo.Commit(ctx, fmt.Sprintf("taskcage: %s", id)); err != nil {
			return r.errorResult(task.ExitInternalError, fmt.Errorf("committing worktree changes: %w", err)), false
		}
		commitAfter, err = wsRepo.RevParseHead(ctx)
		if err != nil {
			return r.errorResult(task.ExitInternalError, fmt.Errorf("reading worktree HEAD after commit: %w", err)), false
		}
	}

	// xii. Determine the final status.
	exitPath := task.ExitCompletedSuccess
	resultStatus := task.StatusSuccess
	if !allPassed {
		exitPath = task.ExitCompletedFailed
		resultStatus = task.StatusFailed
	}

	result := task.Result{
		Status:       resultStatus,
		ExitPath:     exitPath,
		Verification: verifications,
		Branch:       branch,
		CommitBefore: commitBefore,
		CommitAfter:  commitAfter,
		FilesChanged: changed,
		Artifacts: task.Artifacts{
			PatchPath: r.dirs.PatchFilePath(id),
			LogPath:   logPath,
		},
	}

	halt := !allPassed && r.task.StopOnFailureOrDefault()
	return result, halt
}

// spillIfOverCap writes data to a content-addressed log file when it
// exceeds CapturedOutputLimit, compressing it with zstd first when it
// also exceeds zstdSpillThreshold. It reports whether it spilled and,
// if so, the path the caller should record in the result.
func (r *taskRun) spillIfOverCap(id string, index int, stream string, data []byte) (spilled bool, path string, err error) {
	if len(data) <= CapturedOutputLimit {
		return false, "", nil
	}

	hash := blake3.Sum256(data)
	digest := hex.EncodeToString(hash[:])[:16]

	payload := data
	compressed := false
	if len(data) > zstdSpillThreshold {
		encoder, encErr := zstd.NewWriter(nil)
		if encErr != nil {
			return false, "", fmt.Errorf("constructing zstd encoder: %w", encErr)
		}
		payload = encoder.EncodeAll(data, nil)
		encoder.Close()
		compressed = true
	}

	path = r.dirs.SpillLogPath(id, index, stream, digest, compressed)
	if err := safefs.WriteAtomic(path, payload, r.dirs.Root); err != nil {
		return false, "", fmt.Errorf("spilling %s log: %w", stream, err)
	}
	return true, path, nil
}

// errorResult builds an internal_error-flavored result for an
// unexpected infrastructure failure.
func (r *taskRun) errorResult(exitPath task.ExitPath, err error) task.Result {
	r.logger.Error("task processing error", "exit_path", exitPath, "error", err)
	return task.Result{Status: task.StatusError, ExitPath: exitPath, Reason: err.Error()}
}

// refusalResult builds a failed result for a refusal the spec names
// explicitly (dirty repo, branch checkout failure, timeout, crash,
// scope violation).
func (r *taskRun) refusalResult(exitPath task.ExitPath, err error) task.Result {
	r.logger.Warn("task refused", "exit_path", exitPath, "error", err)
	return task.Result{Status: task.StatusFailed, ExitPath: exitPath, Reason: err.Error()}
}

// secretResult builds the result for a secret_detected short-circuit.
// It never names the matched bytes — only pattern names and a count.
func (r *taskRun) secretResult(matches []scanner.Match) task.Result {
	names := make(map[string]struct{})
	for _, m := range matches {
		names[m.PatternName] = struct{}{}
	}
	patterns := make([]string, 0, len(names))
	for name := range names {
		patterns = append(patterns, name)
	}
	sort.Strings(patterns)

	incidentHash := incidentHash(r.task.ID, patterns)
	r.logger.Warn("secret detected", "pattern_count", len(patterns), "match_count", len(matches))

	return task.Result{
		Status:   task.StatusSecretDetected,
		ExitPath: task.ExitSecretDetected,
		SecretIncident: &task.SecretIncident{
			Patterns:     patterns,
			MatchCount:   len(matches),
			IncidentHash: incidentHash,
		},
	}
}

// incidentHash computes the first 16 hex characters of
// SHA-256(id || ',' || sorted pattern names), matching the spec's
// incident fingerprint exactly.
func incidentHash(id string, sortedPatterns []string) string {
	sum := sha256.Sum256([]byte(id + "," + strings.Join(sortedPatterns, ",")))
	return hex.EncodeToString(sum[:])[:16]
}

// finish performs the uniform teardown every exit path shares: remove
// the worktree (if one was created), delete the running/ file (if the
// task reached running/), write the result, and release the task
// lock.
func (r *taskRun) finish(result task.Result) error {
	dirs := r.dirs
	id := r.task.ID

	if r.wsPath != "" {
		targetRepo := safevcs.NewRepository(r.loop.cfg.TargetRepo)
		ctx := context.Background()
		if safefs.IsContained(r.wsPath, dirs.Tmp) {
			if err := targetRepo.WorktreeRemove(ctx, r.wsPath); err != nil {
				r.logger.Error("failed to remove worktree", "path", r.wsPath, "error", err)
			}
		}
	}

	data, err := task.MarshalCanonical(result)
	if err != nil {
		return err
	}
	if err := safefs.WriteAtomic(dirs.ResultFilePath(id), data, dirs.Root); err != nil {
		return err
	}

	if r.movedToRunning {
		if err := safefs.Unlink(dirs.RunningFilePath(id), dirs.Root); err != nil && !os.IsNotExist(err) {
			r.logger.Error("failed to remove running file", "error", err)
		}
	}

	return safety.ReleaseLock(dirs.TaskLockPath(id))
}

// scanStreams runs one Scanner per stream concurrently, matching the
// spec's "two goroutines each feeding one StreamScanner instance,
// joined before the state machine proceeds" concurrency model.
func scanStreams(stdout, stderr []byte) (stdoutMatches, stderrMatches []scanner.Match) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s := scanner.New()
		stdoutMatches = s.Scan(stdout)
		stdoutMatches = append(stdoutMatches, s.Finalize()...)
	}()
	go func() {
		defer wg.Done()
		s := scanner.New()
		stderrMatches = s.Scan(stderr)
		stderrMatches = append(stderrMatches, s.Finalize()...)
	}()
	wg.Wait()
	return stdoutMatches, stderrMatches
}
