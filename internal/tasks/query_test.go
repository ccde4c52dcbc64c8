package tasks

import (
	"net/url"
	"strconv"
	"testing"
	"time"
)

func sampleTasks() []Task {
	base := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return []Task{
		{ID: "t1", Description: "Buy milk", Completed: false, CreatedAt: base, UpdatedAt: base.Add(3 * time.Hour)},
		{ID: "t2", Description: "Answer mail", Completed: true, CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)},
		{ID: "t3", Description: "Clean desk", Completed: false, CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour)},
	}
}

func parse(t *testing.T, query string) Criteria {
	t.Helper()
	values, err := url.ParseQuery(query)
	if err != nil {
		t.Fatalf("failed to parse query: %v", err)
	}
	return ParseCriteria(values)
}

func ids(items []Task) []string {
	result := make([]string, len(items))
	for i, item := range items {
		result[i] = item.ID
	}
	return result
}

func TestApplyNoCriteriaKeepsInsertionOrder(t *testing.T) {
	got := parse(t, "").Apply(sampleTasks())
	want := []string{"t1", "t2", "t3"}
	for i, id := range ids(got) {
		if id != want[i] {
			t.Fatalf("unexpected order: %v", ids(got))
		}
	}
}

func TestApplyCompletedFilter(t *testing.T) {
	got := parse(t, "completed=true").Apply(sampleTasks())
	if len(got) != 1 || got[0].ID != "t2" {
		t.Fatalf("unexpected result for completed=true: %v", ids(got))
	}

	got = parse(t, "completed=false").Apply(sampleTasks())
	if len(got) != 2 || got[0].ID != "t1" || got[1].ID != "t3" {
		t.Fatalf("unexpected result for completed=false: %v", ids(got))
	}
}

func TestApplyCompletedNonLiteralIsIgnored(t *testing.T) {
	got := parse(t, "completed=banana").Apply(sampleTasks())
	if len(got) != 3 {
		t.Fatalf("non-literal completed value should not filter: %v", ids(got))
	}
}

func TestApplySortByDescriptionAscendingByDefault(t *testing.T) {
	got := parse(t, "sortBy=description").Apply(sampleTasks())
	want := []string{"t2", "t1", "t3"}
	for i, id := range ids(got) {
		if id != want[i] {
			t.Fatalf("unexpected order: %v", ids(got))
		}
	}
}

func TestApplySortByCreatedAtDescending(t *testing.T) {
	got := parse(t, "sortBy=createdAt:desc").Apply(sampleTasks())
	want := []string{"t3", "t2", "t1"}
	for i, id := range ids(got) {
		if id != want[i] {
			t.Fatalf("unexpected order: %v", ids(got))
		}
	}
}

func TestApplySortByCompleted(t *testing.T) {
	got := parse(t, "sortBy=completed").Apply(sampleTasks())
	if got[len(got)-1].ID != "t2" {
		t.Fatalf("completed task should sort last: %v", ids(got))
	}
}

func TestApplySortByUnknownFieldIsIgnored(t *testing.T) {
	got := parse(t, "sortBy=location").Apply(sampleTasks())
	want := []string{"t1", "t2", "t3"}
	for i, id := range ids(got) {
		if id != want[i] {
			t.Fatalf("unknown sort field should not reorder: %v", ids(got))
		}
	}
}

func TestApplySkipAndLimitPartitionWithoutOverlap(t *testing.T) {
	items := sampleTasks()

	var collected []string
	for skip := 0; ; skip++ {
		page := parse(t, "limit=1&skip="+strconv.Itoa(skip)).Apply(items)
		if len(page) == 0 {
			break
		}
		if len(page) != 1 {
			t.Fatalf("limit=1 must return exactly one task, got %d", len(page))
		}
		collected = append(collected, page[0].ID)
	}

	if len(collected) != len(items) {
		t.Fatalf("pages do not cover all tasks: %v", collected)
	}
	seen := map[string]bool{}
	for _, id := range collected {
		if seen[id] {
			t.Fatalf("task %s appeared on more than one page", id)
		}
		seen[id] = true
	}
}

func TestApplySkipBeyondEndReturnsEmpty(t *testing.T) {
	got := parse(t, "skip=10").Apply(sampleTasks())
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
}

func TestParseCriteriaIgnoresInvalidNumbers(t *testing.T) {
	got := parse(t, "limit=abc&skip=-2").Apply(sampleTasks())
	if len(got) != 3 {
		t.Fatalf("invalid limit/skip should be ignored: %v", ids(got))
	}
}

func TestApplyFilterBeforeSortBeforePagination(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	items := []Task{
		{ID: "a", Description: "D", Completed: false, CreatedAt: base},
		{ID: "b", Description: "B", Completed: true, CreatedAt: base},
		{ID: "c", Description: "C", Completed: false, CreatedAt: base},
		{ID: "d", Description: "A", Completed: false, CreatedAt: base},
	}

	// 絞り込み後に整列し、その上でページングされること
	got := parse(t, "completed=false&sortBy=description&skip=1&limit=1").Apply(items)
	if len(got) != 1 || got[0].ID != "c" {
		t.Fatalf("unexpected page: %v", ids(got))
	}
}
