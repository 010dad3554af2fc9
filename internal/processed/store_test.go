package processed_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nhle/mail-triage/internal/processed"
	"github.com/nhle/mail-triage/tests/testutil"
)

func TestStore_AddAndUIDs(t *testing.T) {
	s := testutil.NewProcessedStore(t)
	ctx := context.Background()

	added, err := s.Add(ctx, "INBOX", []uint32{1, 2, 3}, "run-1")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added != 3 {
		t.Errorf("Add() = %d, want 3", added)
	}

	set, err := s.UIDs(ctx, "INBOX")
	if err != nil {
		t.Fatalf("UIDs() error = %v", err)
	}
	if len(set) != 3 {
		t.Errorf("UIDs() = %d entries, want 3", len(set))
	}
	for _, uid := range []uint32{1, 2, 3} {
		if _, ok := set[uid]; !ok {
			t.Errorf("UIDs() missing %d", uid)
		}
	}
}

func TestStore_AddIgnoresDuplicates(t *testing.T) {
	s := testutil.NewProcessedStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "INBOX", []uint32{1, 2}, "run-1"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	added, err := s.Add(ctx, "INBOX", []uint32{2, 3}, "run-2")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added != 1 {
		t.Errorf("Add() = %d newly recorded, want 1", added)
	}

	set, err := s.UIDs(ctx, "INBOX")
	if err != nil {
		t.Fatalf("UIDs() error = %v", err)
	}
	if len(set) != 3 {
		t.Errorf("UIDs() = %d entries, want 3", len(set))
	}
}

func TestStore_UIDsScopedByMailbox(t *testing.T) {
	s := testutil.NewProcessedStore(t)
	ctx := context.Background()

	if _, err := s.Add(ctx, "INBOX", []uint32{1}, "run-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Add(ctx, "Archive", []uint32{1, 2}, "run-1"); err != nil {
		t.Fatal(err)
	}

	inbox, err := s.UIDs(ctx, "INBOX")
	if err != nil {
		t.Fatal(err)
	}
	if len(inbox) != 1 {
		t.Errorf("INBOX set = %d entries, want 1", len(inbox))
	}

	empty, err := s.UIDs(ctx, "Spam")
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown mailbox set = %d entries, want 0", len(empty))
	}
}

func TestStore_AddEmpty(t *testing.T) {
	s := testutil.NewProcessedStore(t)

	added, err := s.Add(context.Background(), "INBOX", nil, "run-1")
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if added != 0 {
		t.Errorf("Add() = %d, want 0", added)
	}
}

func TestStore_RunHistory(t *testing.T) {
	s := testutil.NewProcessedStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run := processed.Run{
			ID:           id,
			Mailbox:      "INBOX",
			Model:        "claude-sonnet-4-5",
			StartedAt:    base.Add(time.Duration(i) * time.Hour),
			FinishedAt:   base.Add(time.Duration(i)*time.Hour + time.Minute),
			Fetched:      10,
			Classified:   9,
			Succeeded:    8,
			Failed:       1,
			InputTokens:  1200,
			OutputTokens: 300,
		}
		if err := s.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", id, err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("RecentRuns() = %d runs, want 2", len(runs))
	}
	if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
		t.Errorf("RecentRuns() order = %s, %s; want run-c, run-b", runs[0].ID, runs[1].ID)
	}
	if runs[0].Succeeded != 8 || runs[0].InputTokens != 1200 {
		t.Errorf("run fields lost: %+v", runs[0])
	}
}

func TestStore_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.db")

	s1, err := processed.NewStore(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if _, err := s1.Add(context.Background(), "INBOX", []uint32{7}, "run-1"); err != nil {
		t.Fatal(err)
	}
	s1.Close()

	s2, err := processed.NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	set, err := s2.UIDs(context.Background(), "INBOX")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := set[7]; !ok {
		t.Error("data lost across reopen")
	}
}
