package service

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// IndexRepository is the storage surface for per-user conversation
// summaries.
type IndexRepository interface {
	UpdateEntry(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, at time.Time) error
	MarkEntrySeen(ctx context.Context, ownerID, chatID string) error
}

// maxRepairAttempts bounds how often a failed index write is replayed
// before it is dropped.
const maxRepairAttempts = 5

// Updater maintains each participant's index entry. The primary write is
// attempted inline and never fails the caller; a failed write is queued
// keyed by (chatID, ownerID) and replayed idempotently by the repair
// scheduler. Replays are at-least-once and last-write-wins; they add no
// atomicity across the two participants' documents.
type Updater struct {
	repo   IndexRepository
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string]repairJob
}

type repairJob struct {
	OwnerID     string
	ChatID      string
	LastMessage string
	Seen        bool
	At          time.Time
	Attempts    int
}

// NewUpdater creates an index updater.
func NewUpdater(repo IndexRepository, logger *slog.Logger) *Updater {
	return &Updater{
		repo:    repo,
		logger:  logger,
		pending: make(map[string]repairJob),
	}
}

// Update rewrites one owner's entry for a chat. Failure is logged and
// queued for repair; the triggering message write has already succeeded
// and is never rolled back.
func (u *Updater) Update(ctx context.Context, ownerID, chatID, lastMessage string, seen bool, at time.Time) {
	err := u.repo.UpdateEntry(ctx, ownerID, chatID, lastMessage, seen, at)
	if err == nil {
		return
	}

	u.logger.Warn("index update failed, queued for repair",
		"owner_id", ownerID, "chat_id", chatID, "error", err)
	u.enqueue(repairJob{
		OwnerID:     ownerID,
		ChatID:      chatID,
		LastMessage: lastMessage,
		Seen:        seen,
		At:          at,
	})
}

// MarkSeen flips the owner's unread flag for a chat. Best-effort: a
// failure is logged only, since reopening the conversation re-marks it.
func (u *Updater) MarkSeen(ctx context.Context, ownerID, chatID string) {
	if err := u.repo.MarkEntrySeen(ctx, ownerID, chatID); err != nil {
		u.logger.Warn("marking index entry seen failed",
			"owner_id", ownerID, "chat_id", chatID, "error", err)
	}
}

func (u *Updater) enqueue(job repairJob) {
	key := job.ChatID + "/" + job.OwnerID

	u.mu.Lock()
	defer u.mu.Unlock()
	if existing, ok := u.pending[key]; ok {
		// A newer summary supersedes the queued one; keep its attempts.
		if job.At.Before(existing.At) {
			return
		}
		job.Attempts = existing.Attempts
	}
	u.pending[key] = job
}

// Pending reports how many repair jobs are queued.
func (u *Updater) Pending() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.pending)
}

// Repair replays queued index writes. Jobs that keep failing are retried
// on later passes up to maxRepairAttempts, then dropped. Returns how
// many jobs were applied and how many remain queued.
func (u *Updater) Repair(ctx context.Context) (applied, remaining int) {
	u.mu.Lock()
	jobs := make([]repairJob, 0, len(u.pending))
	for _, job := range u.pending {
		jobs = append(jobs, job)
	}
	u.pending = make(map[string]repairJob)
	u.mu.Unlock()

	for _, job := range jobs {
		select {
		case <-ctx.Done():
			u.requeue(job)
			remaining++
			continue
		default:
		}

		if err := u.repo.UpdateEntry(ctx, job.OwnerID, job.ChatID, job.LastMessage, job.Seen, job.At); err != nil {
			job.Attempts++
			if job.Attempts >= maxRepairAttempts {
				u.logger.Error("dropping index repair after max attempts",
					"owner_id", job.OwnerID, "chat_id", job.ChatID, "error", err)
				continue
			}
			u.requeue(job)
			remaining++
			continue
		}
		applied++
	}
	return applied, remaining
}

// requeue puts a job back unless a newer one arrived while repairing.
func (u *Updater) requeue(job repairJob) {
	key := job.ChatID + "/" + job.OwnerID

	u.mu.Lock()
	defer u.mu.Unlock()
	if existing, ok := u.pending[key]; ok && existing.At.After(job.At) {
		return
	}
	u.pending[key] = job
}
