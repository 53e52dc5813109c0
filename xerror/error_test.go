package xerror

import (
	"errors"
	"testing"
)

func TestGetReleaseRoundTrip(t *testing.T) {
	p := NewPool()
	e := p.Get(NotFound, 0, "store", "no such file")
	if e.Code != NotFound {
		t.Fatalf("code = %v, want %v", e.Code, NotFound)
	}
	if e.object() != "store" {
		t.Fatalf("object = %q, want store", e.object())
	}
	p.Release(e)
	if e.pooled {
		t.Fatalf("expected descriptor released")
	}
}

func TestPoolGrowsByBlock(t *testing.T) {
	p := NewPool()
	var got []*Error
	for i := 0; i < blockSize+5; i++ {
		got = append(got, p.Get(Busy, 0, "", ""))
	}
	if len(p.blocks) != 2 {
		t.Fatalf("expected pool to grow to 2 blocks, got %d", len(p.blocks))
	}
	for _, e := range got {
		p.Release(e)
	}
}

func TestCascadeAndContains(t *testing.T) {
	root := New(Open)
	root.Info = "cannot open file"
	wrapped := Cascade(Get(StoreErr, 0, "store-1", "insert failed"), root)
	if !Contains(wrapped, Open) {
		t.Fatalf("expected chain to contain Open")
	}
	if Contains(wrapped, EOF) {
		t.Fatalf("did not expect chain to contain EOF")
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	err := Cascade(Get(Timeout, 0, "queue", "dequeue"), nil)
	if !errors.Is(err, New(Timeout)) {
		t.Fatalf("expected errors.Is to match by code")
	}
}

func TestRenderNewestFirst(t *testing.T) {
	root := New(Open)
	root.Info = "disk full"
	mid := Cascade(New(Write), root)
	mid.Info = "flush failed"
	top := Cascade(New(Catalog), mid)
	top.Info = "catalog flush"

	out := Render(top)
	want := "[catalog]: catalog flush\n[write]: flush failed\n[open]: disk full"
	if out != want {
		t.Fatalf("Render() = %q, want %q", out, want)
	}
}

func TestFatalCodes(t *testing.T) {
	for _, c := range []Code{Panic, Magic, BadBlock, BadFileSize} {
		if !Fatal(c) {
			t.Fatalf("expected %v to be fatal", c)
		}
	}
	if Fatal(EOF) {
		t.Fatalf("did not expect EOF to be fatal")
	}
}
