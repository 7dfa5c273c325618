package plotfile

import (
	"bytes"
	"testing"
)

func TestRootHasherDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x5A}, 17*leafSize+9)

	var h1, h2 RootHasher
	h1.Write(data)
	h2.Write(data[:100])
	h2.Write(data[100:])

	r1, err := h1.Root()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := h2.Root()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r1, r2) {
		t.Fatalf("chunked write produced a different root: %x != %x", r1, r2)
	}
}

func TestRootHasherSinglePairMatchesOneHash(t *testing.T) {
	left := bytes.Repeat([]byte{0x01}, leafSize)
	right := bytes.Repeat([]byte{0x02}, leafSize)

	var h RootHasher
	h.Write(left)
	h.Write(right)

	got, err := h.Root()
	if err != nil {
		t.Fatal(err)
	}
	want := hashPair(append([]byte(nil), left...), append([]byte(nil), right...))
	if !bytes.Equal(got, want) {
		t.Fatalf("root of a single pair should equal hashing that pair directly: %x != %x", got, want)
	}
}

func TestRootHasherSingleLeafIsRootUnchanged(t *testing.T) {
	var h RootHasher
	leaf := bytes.Repeat([]byte{0x42}, leafSize)
	h.Write(leaf)

	got, err := h.Root()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, leaf) {
		t.Fatalf("a single leaf should pass through as the root unchanged: %x != %x", got, leaf)
	}
}

func TestRootHasherDiffersOnInput(t *testing.T) {
	var h1, h2 RootHasher
	h1.Write(bytes.Repeat([]byte{0x01}, 4*leafSize))
	h2.Write(bytes.Repeat([]byte{0x02}, 4*leafSize))

	r1, _ := h1.Root()
	r2, _ := h2.Root()
	if bytes.Equal(r1, r2) {
		t.Fatalf("different input produced the same root")
	}
}

func TestRootHasherEmptyErrors(t *testing.T) {
	var h RootHasher
	if _, err := h.Root(); err == nil {
		t.Fatalf("expected an error taking the root of an empty hasher")
	}
}

func TestRootHasherReusableAfterRoot(t *testing.T) {
	var h RootHasher
	h.Write(bytes.Repeat([]byte{0x09}, 4*leafSize))
	r1, err := h.Root()
	if err != nil {
		t.Fatal(err)
	}

	h.Write(bytes.Repeat([]byte{0x09}, 4*leafSize))
	r2, err := h.Root()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r1, r2) {
		t.Fatalf("reusing a hasher after Root() should reproduce the same digest for the same input: %x != %x", r1, r2)
	}
}
