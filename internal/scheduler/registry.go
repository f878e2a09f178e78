// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// registeredJob tracks a job's cron entry and its last run.
type registeredJob struct {
	job             Job
	defaultSchedule string
	entryID         cron.EntryID
	lastRun         time.Time
	lastErr         error
	runs            int
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string
	Description     string
	DefaultSchedule string
	Schedule        string // effective schedule
	IsOverridden    bool
	LastRun         time.Time
	LastError       string
	NextRun         time.Time
	Runs            int
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		info := JobInfo{
			Name:            rj.job.Name,
			Description:     rj.job.Description,
			DefaultSchedule: rj.defaultSchedule,
			Schedule:        rj.job.Schedule,
			IsOverridden:    rj.job.Schedule != rj.defaultSchedule,
			LastRun:         rj.lastRun,
			NextRun:         s.cron.Entry(rj.entryID).Next,
			Runs:            rj.runs,
		}
		if rj.lastErr != nil {
			info.LastError = rj.lastErr.Error()
		}
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Trigger runs a job immediately, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return s.execute(ctx, rj)
}

// UpdateSchedule replaces a job's cron entry. On failure the old schedule
// stays in effect.
func (s *Scheduler) UpdateSchedule(name, schedule string) error {
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rj, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if rj.job.Schedule == schedule {
		return nil
	}

	entryID, err := s.cron.AddFunc(schedule, func() { s.execute(context.Background(), rj) })
	if err != nil {
		return fmt.Errorf("failed to apply new schedule: %w", err)
	}
	s.cron.Remove(rj.entryID)
	rj.entryID = entryID
	rj.job.Schedule = schedule

	s.logger.Info("updated job schedule", "name", name, "schedule", schedule)
	return nil
}

// ResetSchedule restores the schedule the job was registered with.
func (s *Scheduler) ResetSchedule(name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	var def string
	if ok {
		def = rj.defaultSchedule
	}
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.UpdateSchedule(name, def)
}

// Remove unregisters a job and drops its cron entry.
func (s *Scheduler) Remove(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rj, ok := s.jobs[name]
	if !ok {
		return
	}
	s.cron.Remove(rj.entryID)
	delete(s.jobs, name)
	s.logger.Debug("unregistered scheduled job", "name", name)
}
