package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/letterfit/internal/opt"
	"golang.org/x/time/rate"
)

// progressInterval throttles streamed progress events per job.
const progressInterval = 100 * time.Millisecond

// runJob executes an optimization job, mirroring engine reports into the job
// record and the event stream.
func runJob(ctx context.Context, jm *JobManager, jobID string) error {
	job, exists := jm.GetJob(jobID)
	if !exists {
		return &NotFoundError{ID: jobID}
	}
	if job.State != StatePending {
		slog.Debug("Skipping job", "job_id", jobID, "state", job.State)
		return nil
	}

	engine, err := opt.NewEngine(job.Config)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to prepare job: %w", err))
		return err
	}

	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
		j.TotalCount = engine.Evaluator().Len()
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job",
		"job_id", jobID,
		"range_start", job.Config.RangeStart,
		"range_end", job.Config.RangeEnd,
		"population", job.Config.PopulationSize)

	reports := make(chan opt.Report, 64)
	progressDone := make(chan struct{})
	go monitorProgress(jm, jobID, reports, progressDone)

	result, err := engine.Run(ctx, reports)
	close(reports)
	<-progressDone

	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	state := StateCompleted
	if result.Cancelled {
		state = StateCancelled
	}

	endTime := time.Now()
	best := result.Best
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = state
		j.Generation = result.Generations
		j.BestFitness = result.Fitness
		j.SolvedCount = result.SolvedCount
		j.TotalCount = result.TotalCount
		j.MaxError = result.Diagnostics.MaxError
		j.Best = &best
		j.Result = result
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	slog.Info("Job finished",
		"job_id", jobID,
		"state", state,
		"generations", result.Generations,
		"fitness", result.Fitness,
		"solved", result.SolvedCount,
		"total", result.TotalCount,
		"elapsed", result.Elapsed)

	// The final event bypasses the throttle.
	if snapshot, ok := jm.GetJob(jobID); ok {
		jm.broadcaster.Broadcast(eventFromJob(snapshot))
	}

	return nil
}

// monitorProgress drains engine reports until the channel closes, updating
// the job on every report and broadcasting at most one event per interval.
func monitorProgress(jm *JobManager, jobID string, reports <-chan opt.Report, done chan struct{}) {
	defer close(done)
	limiter := rate.NewLimiter(rate.Every(progressInterval), 1)

	for rep := range reports {
		best := rep.BestAssignment
		jm.UpdateJob(jobID, func(j *Job) {
			j.Generation = rep.Generation
			j.BestFitness = rep.BestFitness
			j.SolvedCount = rep.SolvedCount
			j.TotalCount = rep.TotalCount
			j.MaxError = rep.MaxError
			j.MutationRate = rep.MutationRate
			j.Stale = rep.Stale
			j.Best = &best
		})

		if rep.Final || !limiter.Allow() {
			continue
		}
		jm.broadcaster.Broadcast(ProgressEvent{
			JobID:        jobID,
			State:        StateRunning,
			Generation:   rep.Generation,
			BestFitness:  rep.BestFitness,
			SolvedCount:  rep.SolvedCount,
			TotalCount:   rep.TotalCount,
			MaxError:     rep.MaxError,
			MutationRate: rep.MutationRate,
			Stale:        rep.Stale,
			Timestamp:    time.Now(),
		})
	}
}

// markJobFailed marks a job as failed with an error message.
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)

	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateFailed,
		Error:     err.Error(),
		Final:     true,
		Timestamp: endTime,
	})
}
