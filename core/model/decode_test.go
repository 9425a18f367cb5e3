package model

import (
	"encoding/json"
	"testing"

	toterrors "github.com/ossforge/toto/core/errors"
)

func TestDecodeLayoutAcceptsWellFormedEnvelope(t *testing.T) {
	layoutJSON := []byte(`{
		"_type": "layout",
		"expires": "2099-01-01T00:00:00Z",
		"keys": {"bob-key": {"keytype":"ed25519","scheme":"ed25519","keyval":{"public":"aabbcc"}}},
		"steps": [{"name":"clone","pubkeys":["bob-key"],"threshold":1}]
	}`)
	envelope := &Envelope{Kind: EnvelopeClassic, Payload: layoutJSON}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	layout, decodedEnvelope, err := DecodeLayout(data)
	if err != nil {
		t.Fatalf("decode layout: %v", err)
	}
	if len(layout.Steps) != 1 || layout.Steps[0].Name != "clone" {
		t.Fatalf("unexpected layout: %+v", layout)
	}
	if decodedEnvelope.Kind != EnvelopeClassic {
		t.Fatalf("expected classic envelope, got %v", decodedEnvelope.Kind)
	}
}

func TestDecodeLayoutRejectsSchemaViolation(t *testing.T) {
	layoutJSON := []byte(`{
		"_type": "layout",
		"keys": {},
		"steps": []
	}`)
	envelope := &Envelope{Kind: EnvelopeClassic, Payload: layoutJSON}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, _, err = DecodeLayout(data)
	if err == nil {
		t.Fatal("expected error for layout missing expires")
	}
	if toterrors.KindOf(err) != toterrors.KindSchema {
		t.Fatalf("expected Schema kind, got %s", toterrors.KindOf(err))
	}
}

func TestDecodeLayoutRejectsWrongPayloadType(t *testing.T) {
	envelope := &Envelope{Kind: EnvelopeClassic, Payload: []byte(`{"_type":"link","name":"clone","materials":{},"products":{}}`)}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := DecodeLayout(data); err == nil {
		t.Fatal("expected error for link payload passed to DecodeLayout")
	}
}

func TestDecodeLinkAcceptsWellFormedEnvelope(t *testing.T) {
	linkJSON := []byte(`{
		"_type": "link",
		"name": "clone",
		"command": ["git", "clone"],
		"materials": {},
		"products": {"foo.py": {"sha256": "abc"}}
	}`)
	envelope := &Envelope{Kind: EnvelopeClassic, Payload: linkJSON}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	link, decodedEnvelope, err := DecodeLink(data)
	if err != nil {
		t.Fatalf("decode link: %v", err)
	}
	if link.Name != "clone" {
		t.Fatalf("unexpected link: %+v", link)
	}
	if decodedEnvelope == nil {
		t.Fatal("expected non-nil envelope")
	}
}

func TestDecodeLinkRejectsSchemaViolation(t *testing.T) {
	linkJSON := []byte(`{"_type": "link", "materials": {}, "products": {}}`)
	envelope := &Envelope{Kind: EnvelopeClassic, Payload: linkJSON}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, _, err := DecodeLink(data); err == nil {
		t.Fatal("expected error for link missing name")
	}
}
