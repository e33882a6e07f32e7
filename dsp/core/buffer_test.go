package core

import "testing"

func TestEnsureLenReuse(t *testing.T) {
	buf := make([]float32, 4, 8)

	out := EnsureLen(buf, 6)
	if len(out) != 6 {
		t.Fatalf("len = %d, want 6", len(out))
	}

	if cap(out) != cap(buf) {
		t.Fatalf("cap = %d, want %d", cap(out), cap(buf))
	}
}

func TestEnsureLenGrow(t *testing.T) {
	out := EnsureLen([]float32{3, 4}, 16)
	if len(out) != 16 {
		t.Fatalf("len = %d, want 16", len(out))
	}
	if out[0] != 3 || out[1] != 4 || out[2] != 0 {
		t.Fatalf("grown prefix = %v, want [3 4 0]", out[:3])
	}
	if got := EnsureLen(out, 0); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestCopyInto(t *testing.T) {
	dst := make([]float32, 2)

	n := CopyInto(dst, []float32{1, 2, 3})
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}

	if dst[0] != 1 || dst[1] != 2 {
		t.Fatalf("unexpected dst: %#v", dst)
	}
}

func TestZero(t *testing.T) {
	buf := []float32{1, 2, 3}
	Zero(buf)

	for i, v := range buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %v, want 0", i, v)
		}
	}
}

func TestToFloat64(t *testing.T) {
	out := ToFloat64(nil, []float32{0.5, -0.25})
	if len(out) != 2 || out[0] != 0.5 || out[1] != -0.25 {
		t.Fatalf("unexpected out: %#v", out)
	}

	reused := ToFloat64(make([]float64, 0, 8), []float32{1})
	if cap(reused) != 8 {
		t.Fatalf("cap = %d, want 8", cap(reused))
	}
}
