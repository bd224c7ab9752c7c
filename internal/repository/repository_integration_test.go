package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"rally-backend/internal/database"
	"rally-backend/internal/models"
	"rally-backend/internal/studytime"
)

var testPool *pgxpool.Pool

// TestMain boots a throwaway CockroachDB node when RALLY_INTEGRATION=1.
// Otherwise every test here skips.
func TestMain(m *testing.M) {
	if os.Getenv("RALLY_INTEGRATION") != "1" {
		os.Exit(m.Run())
	}

	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := database.Migrate(pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool
	code := m.Run()

	pool.Close()
	server.Stop()
	os.Exit(code)
}

func requirePool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testPool == nil {
		t.Skip("set RALLY_INTEGRATION=1 to run repository integration tests")
	}
	resetDatabase(t)
	return testPool
}

func resetDatabase(t *testing.T) {
	t.Helper()
	tables := []string{"messages", "chat_room_users", "chat_rooms", "friendships", "daily_stats", "study_sessions", "user_locations", "user_classes", "locations", "classes", "users"}
	for _, table := range tables {
		if _, err := testPool.Exec(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
}

func createUser(t *testing.T, repo *UserRepo, username string) *models.User {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: username + "@nyu.edu", Username: username}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func TestUserRepo_CreateConflictAndUsernameChanges(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	users := NewUserRepo(pool)

	alice := createUser(t, users, "alice")

	dup := &models.User{ID: uuid.New(), Email: "ALICE@nyu.edu", Username: "alice2"}
	if err := users.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}

	for i, name := range []string{"alice_a", "alice_b"} {
		updated, err := users.ChangeUsername(ctx, alice.ID, name, models.MaxUsernameChanges)
		if err != nil {
			t.Fatalf("change %d: %v", i, err)
		}
		if updated.UsernameChanges != i+1 {
			t.Fatalf("expected %d changes, got %d", i+1, updated.UsernameChanges)
		}
	}

	if _, err := users.ChangeUsername(ctx, alice.ID, "alice_c", models.MaxUsernameChanges); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict after the limit, got %v", err)
	}
}

func TestStudySessionRepo_FinalizeCreditsOnce(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	users := NewUserRepo(pool)
	sessions := NewStudySessionRepo(pool)
	stats := NewDailyStatRepo(pool)

	user := createUser(t, users, "bob")
	start := time.Now().UTC().Add(-90 * time.Second).Truncate(time.Second)
	day := studytime.Day(start, 0)

	s := &models.StudySession{UserID: user.ID, Mode: models.ModeClassic, StartedAt: start}
	if err := sessions.Create(ctx, s); err != nil {
		t.Fatalf("create session: %v", err)
	}

	second := &models.StudySession{UserID: user.ID, Mode: models.ModeClassic, StartedAt: start}
	if err := sessions.Create(ctx, second); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for a second active CLASSIC session, got %v", err)
	}

	end := start.Add(90 * time.Second)
	first, err := sessions.Finalize(ctx, []models.StudySession{*s}, end, day)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if len(first) != 1 || first[0].DurationSeconds != 90 {
		t.Fatalf("unexpected finalize result: %+v", first)
	}

	again, err := sessions.Finalize(ctx, []models.StudySession{*s}, end.Add(time.Minute), day)
	if err != nil {
		t.Fatalf("second finalize: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no sessions finalized twice, got %d", len(again))
	}

	total, err := stats.TotalForDay(ctx, user.ID, day)
	if err != nil {
		t.Fatalf("total for day: %v", err)
	}
	if total != 90 {
		t.Fatalf("expected 90 seconds credited, got %d", total)
	}
}

func TestFriendshipRepo_PairIsUnordered(t *testing.T) {
	pool := requirePool(t)
	ctx := context.Background()
	users := NewUserRepo(pool)
	friends := NewFriendshipRepo(pool)

	a := createUser(t, users, "carol")
	b := createUser(t, users, "dave")

	req := &models.Friendship{RequesterID: a.ID, AddresseeID: b.ID}
	if err := friends.CreateRequest(ctx, req, nil); err != nil {
		t.Fatalf("create request: %v", err)
	}

	reverse := &models.Friendship{RequesterID: b.ID, AddresseeID: a.ID}
	if err := friends.CreateRequest(ctx, reverse, nil); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for the reverse pair, got %v", err)
	}

	if _, err := friends.Respond(ctx, req.ID, models.FriendshipAccepted); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := friends.Respond(ctx, req.ID, models.FriendshipRejected); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict responding twice, got %v", err)
	}

	ok, err := friends.AreFriends(ctx, b.ID, a.ID)
	if err != nil || !ok {
		t.Fatalf("expected accepted friendship, got %v %v", ok, err)
	}
}
