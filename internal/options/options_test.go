package options

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	blob, err := Encode([]string{"type", "significant_digits"}, []string{"1001", "6"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if v, ok := got.Get("type"); !ok || v != "1001" {
		t.Errorf("Get(type) = %q, %v", v, ok)
	}
	if v, ok := got.Get("significant_digits"); !ok || v != "6" {
		t.Errorf("Get(significant_digits) = %q, %v", v, ok)
	}
}

func TestEmptyBlobMeansNoOptions(t *testing.T) {
	got, err := Decode(nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Keys()) != 0 {
		t.Errorf("expected no keys, got %v", got.Keys())
	}
	blob, err := Encode(nil, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if blob != nil {
		t.Errorf("expected nil blob for no options, got %v", blob)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := Decode([]byte{1, 2}); err == nil {
		t.Fatal("expected error for truncated header")
	}
	if _, err := Decode([]byte{1, 0, 0, 0, 5, 0, 0, 0, 'a'}); err == nil {
		t.Fatal("expected error for truncated string")
	}
}

func TestRejectUnknown(t *testing.T) {
	blob, _ := Encode([]string{"type", "bogus"}, []string{"1", "2"})
	b, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if err := b.RejectUnknown(map[string]bool{"type": true}); err == nil {
		t.Fatal("expected error for unknown key")
	}
	if err := b.RejectUnknown(map[string]bool{"type": true, "bogus": true}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
