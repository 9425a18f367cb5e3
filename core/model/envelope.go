package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ossforge/toto/core/canonical"
	"github.com/ossforge/toto/core/keys"
)

// EnvelopeKind distinguishes the two on-disk signed-wrapper shapes spec
// §3 requires verifiers to accept.
type EnvelopeKind int

const (
	// EnvelopeClassic is {signed: Payload, signatures: [Signature]}.
	EnvelopeClassic EnvelopeKind = iota
	// EnvelopeDSSE is the payload/payloadType/signatures PAE-signed wrapper.
	EnvelopeDSSE
)

// DSSEPayloadType is the payloadType this module writes into DSSE
// envelopes and expects (but does not require) on read.
const DSSEPayloadType = "application/vnd.in-toto+json"

// Envelope is the decoded form of either wrapper shape: the payload's
// raw JSON bytes, a payload type tag (DSSE only), and its signatures.
type Envelope struct {
	Kind        EnvelopeKind
	Payload     json.RawMessage
	PayloadType string
	Signatures  []keys.Signature
}

type classicWire struct {
	Signed     json.RawMessage  `json:"signed"`
	Signatures []keys.Signature `json:"signatures"`
}

type dsseWire struct {
	PayloadType string           `json:"payloadType"`
	Payload     string           `json:"payload"`
	Signatures  []keys.Signature `json:"signatures"`
}

// DecodeEnvelope detects which wrapper shape data uses and decodes it.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("model: decode envelope: %w", err)
	}
	switch {
	case probe["signed"] != nil:
		var wire classicWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("model: decode classic envelope: %w", err)
		}
		return &Envelope{Kind: EnvelopeClassic, Payload: wire.Signed, Signatures: wire.Signatures}, nil
	case probe["payload"] != nil:
		var wire dsseWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("model: decode dsse envelope: %w", err)
		}
		payload, err := base64.StdEncoding.DecodeString(wire.Payload)
		if err != nil {
			return nil, fmt.Errorf("model: decode dsse payload: %w", err)
		}
		return &Envelope{Kind: EnvelopeDSSE, Payload: payload, PayloadType: wire.PayloadType, Signatures: wire.Signatures}, nil
	default:
		return nil, fmt.Errorf("model: unrecognized envelope shape, expected \"signed\" or \"payload\"")
	}
}

// NewClassicEnvelope wraps payload (marshaled via encoding/json) in a
// classic envelope with no signatures yet.
func NewClassicEnvelope(payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("model: marshal payload: %w", err)
	}
	return &Envelope{Kind: EnvelopeClassic, Payload: raw}, nil
}

// NewDSSEEnvelope wraps payload in a DSSE envelope tagged payloadType.
func NewDSSEEnvelope(payload any, payloadType string) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("model: marshal payload: %w", err)
	}
	return &Envelope{Kind: EnvelopeDSSE, Payload: raw, PayloadType: payloadType}, nil
}

// SignBytes returns the exact bytes a Signer/Verifier must operate over:
// the canonical encoding of the payload for a classic envelope, or the
// pre-authentication encoding (PAE) of the payload type and canonical
// payload for a DSSE envelope. The on-disk "signed"/"payload" bytes may
// be pretty-printed; re-canonicalizing here is what makes signatures
// reproducible regardless of on-disk formatting (spec §6).
func (e *Envelope) SignBytes() ([]byte, error) {
	canonicalPayload, err := canonical.EncodeJSON(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("model: canonicalize payload: %w", err)
	}
	switch e.Kind {
	case EnvelopeClassic:
		return canonicalPayload, nil
	case EnvelopeDSSE:
		return PAE(e.PayloadType, canonicalPayload), nil
	default:
		return nil, fmt.Errorf("model: unknown envelope kind %d", e.Kind)
	}
}

// AddSignature appends sig to the envelope's signature list.
func (e *Envelope) AddSignature(sig keys.Signature) {
	e.Signatures = append(e.Signatures, sig)
}

// MarshalJSON renders the envelope in its on-disk wrapper shape.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EnvelopeClassic:
		return json.Marshal(classicWire{Signed: e.Payload, Signatures: e.Signatures})
	case EnvelopeDSSE:
		return json.Marshal(dsseWire{
			PayloadType: e.PayloadType,
			Payload:     base64.StdEncoding.EncodeToString(e.Payload),
			Signatures:  e.Signatures,
		})
	default:
		return nil, fmt.Errorf("model: unknown envelope kind %d", e.Kind)
	}
}

// PAE computes the DSSE pre-authentication encoding of (payloadType,
// payload): "DSSEv1" SP len(payloadType) SP payloadType SP len(payload)
// SP payload, with lengths as ASCII decimal byte counts. This binds the
// payload type into the signed bytes so a signature cannot be replayed
// across payload types.
func PAE(payloadType string, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("DSSEv1")
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(payloadType)))
	buf.WriteByte(' ')
	buf.WriteString(payloadType)
	buf.WriteByte(' ')
	buf.WriteString(strconv.Itoa(len(payload)))
	buf.WriteByte(' ')
	buf.Write(payload)
	return buf.Bytes()
}
