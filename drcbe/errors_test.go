package drcbe

import "testing"

func TestCategoryString(t *testing.T) {
	cases := map[Category]string{
		CategoryInternal:  "internal",
		CategoryAssembler: "assembler",
		CategoryCache:     "cache",
		Category(99):      "unknown",
	}
	for cat, want := range cases {
		if got := cat.String(); got != want {
			t.Errorf("Category(%d).String() = %q, want %q", cat, got, want)
		}
	}
}

func TestGenErrorMessage(t *testing.T) {
	e := internalError("bad opcode %d", 7)
	if e.Category != CategoryInternal {
		t.Errorf("internalError should be CategoryInternal")
	}
	want := "drcbe: internal: bad opcode 7"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestCacheFullErrorIsRetryable(t *testing.T) {
	e := cacheFullError()
	if !e.Retryable {
		t.Errorf("cacheFullError should be retryable")
	}
	if e.Category != CategoryCache {
		t.Errorf("cacheFullError should be CategoryCache")
	}
}

func TestInternalAndAssemblerErrorsAreNotRetryable(t *testing.T) {
	if internalError("x").Retryable {
		t.Errorf("internalError should not be retryable")
	}
	if assemblerError(&GenError{Message: "bad"}).Retryable {
		t.Errorf("assemblerError should not be retryable")
	}
}

func TestPanicGenRecoverableAsGenError(t *testing.T) {
	defer func() {
		r := recover()
		ge, ok := r.(*GenError)
		if !ok {
			t.Fatalf("expected recover() to yield a *GenError, got %T", r)
		}
		if ge.Category != CategoryInternal {
			t.Errorf("wrong category on recovered error: %v", ge.Category)
		}
	}()
	panicGen(internalError("boom"))
}
