// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/olegiv/oasis/internal/testutil"
)

func noop(context.Context) error { return nil }

func TestNew(t *testing.T) {
	s := New(nil)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cron == nil {
		t.Error("New() scheduler has nil cron")
	}
	if s.logger == nil {
		t.Error("New() should default the logger")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	if err := s.Add(Job{Name: "a", Schedule: "@hourly", Run: noop}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Start()
	s.Stop()
}

func TestAdd(t *testing.T) {
	tests := []struct {
		name    string
		job     Job
		wantErr bool
	}{
		{"valid", Job{Name: "a", Schedule: "*/5 * * * *", Run: noop}, false},
		{"descriptor", Job{Name: "b", Schedule: "@daily", Run: noop}, false},
		{"invalid schedule", Job{Name: "c", Schedule: "not cron", Run: noop}, true},
		{"seconds field", Job{Name: "d", Schedule: "0 0 * * * *", Run: noop}, true},
		{"missing name", Job{Schedule: "@daily", Run: noop}, true},
		{"missing run", Job{Name: "e", Schedule: "@daily"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testutil.TestLoggerSilent())
			err := s.Add(tt.job)
			if (err != nil) != tt.wantErr {
				t.Errorf("Add() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAdd_Duplicate(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	job := Job{Name: "a", Schedule: "@daily", Run: noop}
	if err := s.Add(job); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Add(job); !errors.Is(err, ErrDuplicateJob) {
		t.Errorf("second Add() error = %v, want ErrDuplicateJob", err)
	}
}

func TestTrigger(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	calls := 0
	boom := errors.New("boom")
	fail := false
	if err := s.Add(Job{Name: "count", Schedule: "@daily", Run: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("job context has no deadline")
		}
		calls++
		if fail {
			return boom
		}
		return nil
	}}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := s.Trigger(context.Background(), "count"); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	fail = true
	if err := s.Trigger(context.Background(), "count"); !errors.Is(err, boom) {
		t.Errorf("Trigger() error = %v, want boom", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}

	info := s.List()[0]
	if info.Runs != 2 {
		t.Errorf("Runs = %d, want 2", info.Runs)
	}
	if info.LastError != "boom" {
		t.Errorf("LastError = %q, want %q", info.LastError, "boom")
	}
	if info.LastRun.IsZero() {
		t.Error("LastRun should be set")
	}

	if err := s.Trigger(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("Trigger(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestList_Sorted(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := s.Add(Job{Name: name, Schedule: "@daily", Run: noop}); err != nil {
			t.Fatalf("Add(%s) error = %v", name, err)
		}
	}
	s.Start()
	defer s.Stop()

	jobs := s.List()
	want := []string{"alpha", "mid", "zeta"}
	if len(jobs) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(jobs), len(want))
	}
	for i, name := range want {
		if jobs[i].Name != name {
			t.Errorf("List()[%d].Name = %q, want %q", i, jobs[i].Name, name)
		}
		if jobs[i].NextRun.IsZero() {
			t.Errorf("List()[%d].NextRun should be set once started", i)
		}
	}
}

func TestUpdateAndResetSchedule(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	if err := s.Add(Job{Name: "a", Schedule: "@daily", Run: noop}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	if err := s.UpdateSchedule("a", "bogus"); err == nil {
		t.Error("UpdateSchedule(bogus) should fail")
	}
	if got := s.List()[0].Schedule; got != "@daily" {
		t.Errorf("Schedule after failed update = %q, want @daily", got)
	}

	if err := s.UpdateSchedule("a", "@hourly"); err != nil {
		t.Fatalf("UpdateSchedule() error = %v", err)
	}
	info := s.List()[0]
	if info.Schedule != "@hourly" || !info.IsOverridden {
		t.Errorf("after update: Schedule = %q, IsOverridden = %v", info.Schedule, info.IsOverridden)
	}
	if n := len(s.cron.Entries()); n != 1 {
		t.Errorf("cron entries = %d, want 1", n)
	}

	if err := s.ResetSchedule("a"); err != nil {
		t.Fatalf("ResetSchedule() error = %v", err)
	}
	info = s.List()[0]
	if info.Schedule != "@daily" || info.IsOverridden {
		t.Errorf("after reset: Schedule = %q, IsOverridden = %v", info.Schedule, info.IsOverridden)
	}

	if err := s.UpdateSchedule("missing", "@daily"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("UpdateSchedule(missing) error = %v, want ErrJobNotFound", err)
	}
	if err := s.ResetSchedule("missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("ResetSchedule(missing) error = %v, want ErrJobNotFound", err)
	}
}

func TestRemove(t *testing.T) {
	s := New(testutil.TestLoggerSilent())
	if err := s.Add(Job{Name: "a", Schedule: "@daily", Run: noop}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	s.Remove("a")
	s.Remove("a")
	if len(s.List()) != 0 {
		t.Error("List() should be empty after Remove")
	}
	if len(s.cron.Entries()) != 0 {
		t.Error("cron entry should be removed")
	}
}

type fakePruner struct {
	olderThan time.Duration
	calls     int
	err       error
}

func (f *fakePruner) DeleteOldEvents(_ context.Context, olderThan time.Duration) (int64, error) {
	f.calls++
	f.olderThan = olderThan
	return 3, f.err
}

func TestEventRetentionJob(t *testing.T) {
	p := &fakePruner{}
	job := EventRetentionJob(p, 30)
	if job.Name != JobEventRetention {
		t.Errorf("Name = %q, want %q", job.Name, JobEventRetention)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if p.olderThan != 30*24*time.Hour {
		t.Errorf("olderThan = %v, want 720h", p.olderThan)
	}

	disabled := &fakePruner{}
	if err := EventRetentionJob(disabled, 0).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if disabled.calls != 0 {
		t.Errorf("disabled retention called pruner %d times", disabled.calls)
	}

	failing := &fakePruner{err: errors.New("db gone")}
	if err := EventRetentionJob(failing, 1).Run(context.Background()); err == nil {
		t.Error("Run() should surface pruner errors")
	}
}

type fakeReloader struct{ calls int }

func (f *fakeReloader) Reload() error { f.calls++; return nil }

func TestGeoIPReloadJob(t *testing.T) {
	r := &fakeReloader{}
	s := New(testutil.TestLoggerSilent())
	if err := s.Add(GeoIPReloadJob(r)); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := s.Trigger(context.Background(), JobGeoIPReload); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if r.calls != 1 {
		t.Errorf("Reload calls = %d, want 1", r.calls)
	}
}
