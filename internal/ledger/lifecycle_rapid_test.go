// internal/ledger/lifecycle_rapid_test.go
package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"pgregory.net/rapid"

	"lendex/internal/catalog"
	"lendex/internal/roles"
)

// TestLifecycleInvariants drives random operation sequences through the
// engine and checks the availability accounting after every step:
//
//	0 <= available <= total
//	available == total - active issues of the book
func TestLifecycleInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		store := NewMemoryStore()
		clock := newFakeClock()
		svc := NewService(store, WithClock(clock.Now))
		librarian := roles.Actor{ID: uuid.New(), Role: roles.Staff}

		nBooks := rapid.IntRange(1, 3).Draw(rt, "books")
		var bookIDs []uuid.UUID
		totals := map[uuid.UUID]int{}
		for i := 0; i < nBooks; i++ {
			id := uuid.New()
			total := rapid.IntRange(0, 3).Draw(rt, "copies")
			store.AddBook(catalog.Book{ID: id, Title: "b", Author: "a", ISBN: uuid.NewString(), TotalCopies: total, AvailableCopies: total})
			bookIDs = append(bookIDs, id)
			totals[id] = total
		}

		var memberIDs []uuid.UUID
		for i := 0; i < rapid.IntRange(1, 4).Draw(rt, "members"); i++ {
			memberIDs = append(memberIDs, uuid.New())
		}

		var issueIDs []uuid.UUID

		check := func() {
			active := map[uuid.UUID]int{}
			for _, id := range issueIDs {
				issue, err := store.GetIssue(ctx, id)
				if err != nil {
					rt.Fatalf("lookup %s: %v", id, err)
				}
				if issue.Active() {
					active[issue.BookID]++
				}
			}
			for _, bookID := range bookIDs {
				book, err := store.GetBook(ctx, bookID)
				if err != nil {
					rt.Fatalf("book %s: %v", bookID, err)
				}
				if book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
					rt.Fatalf("book %s availability %d out of [0, %d]", bookID, book.AvailableCopies, book.TotalCopies)
				}
				if got, want := book.AvailableCopies, totals[bookID]-active[bookID]; got != want {
					rt.Fatalf("book %s availability %d, want total %d - active %d", bookID, got, totals[bookID], active[bookID])
				}
			}
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 5).Draw(rt, "op")
			switch {
			case op == 0 || len(issueIDs) == 0:
				book := rapid.SampledFrom(bookIDs).Draw(rt, "book")
				who := rapid.SampledFrom(memberIDs).Draw(rt, "member")
				issue, err := svc.RequestIssue(ctx, roles.Actor{ID: who, Role: roles.Member}, book)
				if err == nil {
					issueIDs = append(issueIDs, issue.ID)
				}
			case op == 1:
				id := rapid.SampledFrom(issueIDs).Draw(rt, "issue")
				svc.ApproveIssue(ctx, librarian, id)
			case op == 2:
				id := rapid.SampledFrom(issueIDs).Draw(rt, "issue")
				svc.RejectIssue(ctx, librarian, id)
			case op == 3:
				id := rapid.SampledFrom(issueIDs).Draw(rt, "issue")
				svc.ReturnIssue(ctx, librarian, id)
			case op == 4:
				id := rapid.SampledFrom(issueIDs).Draw(rt, "issue")
				svc.ReissueIssue(ctx, librarian, id)
			default:
				clock.Advance(time.Duration(rapid.IntRange(1, 20).Draw(rt, "days")) * 24 * time.Hour)
			}
			check()
		}
	})
}
