package resolve

import "testing"

func TestOstreeResolverAcceptsValidObjectID(t *testing.T) {
	id := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	results, err := ostreeResolver{}.Resolve(id, DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	digestSet, ok := results[id]
	if !ok {
		t.Fatalf("expected entry keyed by object id: %+v", results)
	}
	if digestSet["sha256"] != id {
		t.Fatalf("got %q, want %q", digestSet["sha256"], id)
	}
}

func TestOstreeResolverNormalizesCase(t *testing.T) {
	id := "E3B0C44298FC1C149AFBF4C8996FB92427AE41E4649B934CA495991B7852B855"
	results, err := ostreeResolver{}.Resolve(id, DefaultOptions())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if _, ok := results[want]; !ok {
		t.Fatalf("expected lowercase key %q in %+v", want, results)
	}
}

func TestOstreeResolverRejectsMalformedID(t *testing.T) {
	cases := []string{
		"not-hex",
		"abc123",
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b85", // 63 chars
		"",
	}
	for _, c := range cases {
		if _, err := (ostreeResolver{}).Resolve(c, DefaultOptions()); err == nil {
			t.Fatalf("expected error rejecting malformed object id %q", c)
		}
	}
}
