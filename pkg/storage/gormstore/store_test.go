package gormstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"bountyhooks/pkg/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Config{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "bounty.db"),
		AutoMigrate: true,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRepositoryUpsertAndGet(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertRepository(ctx, storage.RepositoryRecord{ID: 7, Owner: "acme", Name: "api", FullName: "acme/api", HookSecret: "one"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertRepository(ctx, storage.RepositoryRecord{ID: 7, Owner: "acme", Name: "api", FullName: "acme/api", HookSecret: "two"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	record, err := store.GetRepository(ctx, "acme/api")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if record == nil || record.HookSecret != "two" || record.ID != 7 {
		t.Fatalf("unexpected repository: %+v", record)
	}

	missing, err := store.GetRepository(ctx, "acme/missing")
	if err != nil || missing != nil {
		t.Fatalf("expected nil repository, got %+v (err=%v)", missing, err)
	}
}

func TestSaveClaimUpsertsOnPullRequestID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	opened := storage.ClaimRecord{RepoID: 1, PRID: 500, PRNumber: 12, UserID: 9, IssueNumber: 4, State: "opened"}
	for i := 0; i < 2; i++ {
		if err := store.SaveClaim(ctx, opened); err != nil {
			t.Fatalf("save opened: %v", err)
		}
	}

	commit := "abc123"
	merged := opened
	merged.State = "merged"
	merged.CommitID = &commit
	if err := store.SaveClaim(ctx, merged); err != nil {
		t.Fatalf("save merged: %v", err)
	}

	claims, err := store.ListClaims(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected a single claim row, got %d", len(claims))
	}
	if claims[0].State != "merged" || claims[0].CommitID == nil || *claims[0].CommitID != commit {
		t.Fatalf("unexpected claim: %+v", claims[0])
	}
}

func TestSaveClaimRequiresState(t *testing.T) {
	store := openTestStore(t)
	if err := store.SaveClaim(context.Background(), storage.ClaimRecord{PRID: 1}); err == nil {
		t.Fatalf("expected error for missing state")
	}
}

func TestCreateUserIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	user := storage.UserRecord{ID: 42, Login: "octo", Name: "Octo Cat", AvatarURL: "https://example.com/a.png"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	user.Name = "Octo"
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("create again: %v", err)
	}

	got, err := store.GetUser(ctx, 42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Login != "octo" || got.Name != "Octo" {
		t.Fatalf("unexpected user: %+v", got)
	}
}

func TestCloseBounty(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.UpsertBounty(ctx, storage.BountyRecord{RepoID: 3, RepoName: "api", Owner: "acme", IssueID: 900, IssueNumber: 5, Title: "Bug"}); err != nil {
		t.Fatalf("upsert bounty: %v", err)
	}
	if err := store.CloseBounty(ctx, 900, "deadbeef"); err != nil {
		t.Fatalf("close: %v", err)
	}

	bounties, err := store.ListBounties(ctx, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bounties) != 1 || bounties[0].State != "closed" || bounties[0].ClosingCommitID == nil || *bounties[0].ClosingCommitID != "deadbeef" {
		t.Fatalf("unexpected bounties: %+v", bounties)
	}

	if err := store.CloseBounty(ctx, 901, "deadbeef"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestMissingRowsAreNotLogged(t *testing.T) {
	var buf bytes.Buffer
	previous := logOutput
	logOutput = &buf
	defer func() { logOutput = previous }()

	store := openTestStore(t)
	ctx := context.Background()

	if user, err := store.GetUser(ctx, 404); err != nil || user != nil {
		t.Fatalf("expected missing user, got %v %v", user, err)
	}
	if repo, err := store.GetRepository(ctx, "acme/missing"); err != nil || repo != nil {
		t.Fatalf("expected missing repository, got %v %v", repo, err)
	}
	if claim, err := store.GetClaim(ctx, 404); err != nil || claim != nil {
		t.Fatalf("expected missing claim, got %v %v", claim, err)
	}
	if strings.Contains(buf.String(), "record not found") {
		t.Fatalf("expected no record-not-found lines, got %q", buf.String())
	}
}
