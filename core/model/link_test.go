package model

import (
	"encoding/json"
	"testing"
)

func TestLinkUnmarshalJSONRoundTrip(t *testing.T) {
	data := []byte(`{
		"_type": "link",
		"name": "clone",
		"command": ["git", "clone", "repo"],
		"materials": {},
		"products": {"foo.py": {"sha256": "abc123"}},
		"byproducts": {"stdout": "ok"},
		"environment": {"user": "bob", "retries": 2, "ci": true}
	}`)
	var link Link
	if err := json.Unmarshal(data, &link); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if link.Name != "clone" {
		t.Fatalf("unexpected name: %s", link.Name)
	}
	if link.Products["foo.py"]["sha256"] != "abc123" {
		t.Fatalf("unexpected product digest: %+v", link.Products)
	}
	if link.Environment["retries"] != int64(2) {
		t.Fatalf("unexpected environment retries value: %v (%T)", link.Environment["retries"], link.Environment["retries"])
	}
	if err := link.Validate(); err != nil {
		t.Fatalf("expected valid link, got error: %v", err)
	}
}

func TestLinkUnmarshalJSONRejectsFloatEnvironmentValue(t *testing.T) {
	data := []byte(`{"name":"clone","materials":{},"products":{},"environment":{"ratio":1.5}}`)
	var link Link
	if err := json.Unmarshal(data, &link); err == nil {
		t.Fatal("expected error for float environment value")
	}
}

func TestLinkValidateRejectsMissingName(t *testing.T) {
	link := Link{Materials: map[string]DigestSet{}, Products: map[string]DigestSet{}}
	if err := link.Validate(); err == nil {
		t.Fatal("expected error for missing name")
	}
}

func TestLinkValidateRejectsBackslashPath(t *testing.T) {
	link := Link{
		Name:      "clone",
		Materials: map[string]DigestSet{`foo\bar`: {"sha256": "abc"}},
		Products:  map[string]DigestSet{},
	}
	if err := link.Validate(); err == nil {
		t.Fatal("expected error for backslash path")
	}
}

func TestLinkValidateRejectsTrailingSeparator(t *testing.T) {
	link := Link{
		Name:      "clone",
		Materials: map[string]DigestSet{"foo/": {"sha256": "abc"}},
		Products:  map[string]DigestSet{},
	}
	if err := link.Validate(); err == nil {
		t.Fatal("expected error for trailing separator")
	}
}

func TestLinkValidateRejectsWrongPayloadType(t *testing.T) {
	link := Link{Type: "layout", Name: "clone", Materials: map[string]DigestSet{}, Products: map[string]DigestSet{}}
	if err := link.Validate(); err == nil {
		t.Fatal("expected error for mismatched _type")
	}
}
