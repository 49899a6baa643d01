package diagnostics

import "testing"

func diag(sev Severity, msg string) Diagnostic {
	return Diagnostic{
		Range:    Range{Start: Position{Line: 1}, End: Position{Line: 1, Character: 5}},
		Severity: sev,
		Message:  msg,
	}
}

func TestStorePublishAndGet(t *testing.T) {
	store := NewStore()
	store.Publish("/proj/a.ts", []Diagnostic{diag(SeverityError, "boom")})

	got := store.Get("/proj/a.ts")
	if len(got) != 1 || got[0].Message != "boom" {
		t.Errorf("Get: got %v", got)
	}
	if got := store.Get("/proj/other.ts"); got != nil {
		t.Errorf("unknown file: got %v, want nil", got)
	}
}

func TestStorePublishReplaces(t *testing.T) {
	store := NewStore()
	store.Publish("/proj/a.ts", []Diagnostic{diag(SeverityError, "first"), diag(SeverityWarning, "second")})
	store.Publish("/proj/a.ts", []Diagnostic{diag(SeverityWarning, "only")})

	got := store.Get("/proj/a.ts")
	if len(got) != 1 || got[0].Message != "only" {
		t.Errorf("replace: got %v", got)
	}
}

func TestStoreEmptyPublishClears(t *testing.T) {
	store := NewStore()
	store.Publish("/proj/a.ts", []Diagnostic{diag(SeverityError, "x")})
	store.Publish("/proj/a.ts", nil)

	if got := store.Get("/proj/a.ts"); got != nil {
		t.Errorf("cleared file: got %v, want nil", got)
	}
	if len(store.All()) != 0 {
		t.Error("All should be empty after clearing the only file")
	}
}

func TestStoreCounts(t *testing.T) {
	store := NewStore()
	store.Publish("/proj/a.ts", []Diagnostic{
		diag(SeverityError, "e1"),
		diag(SeverityWarning, "w1"),
	})
	store.Publish("/proj/b.ts", []Diagnostic{
		diag(SeverityError, "e2"),
		diag(SeverityHint, "h1"),
	})

	errs, warns := store.Counts()
	if errs != 2 || warns != 1 {
		t.Errorf("Counts: got %d errors / %d warnings, want 2 / 1", errs, warns)
	}

	store.Clear()
	errs, warns = store.Counts()
	if errs != 0 || warns != 0 {
		t.Errorf("Counts after Clear: got %d / %d", errs, warns)
	}
}
