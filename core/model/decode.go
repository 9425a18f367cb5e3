package model

import (
	"encoding/json"
	"fmt"

	toterrors "github.com/ossforge/toto/core/errors"
	"github.com/ossforge/toto/core/schema/validate"
)

// typeProbe peeks at a payload's "_type" discriminator before committing
// to a concrete struct, per §9's "dynamic/self-described payloads".
type typeProbe struct {
	Type string `json:"_type"`
}

// DecodeLayout decodes an on-disk envelope (classic or DSSE) whose
// payload is a Layout: it validates the payload against the embedded
// layout schema when schema validation is enabled, structurally decodes
// it, and runs Layout.Validate. It returns both the typed Layout and
// the Envelope so a caller can still verify signatures over the
// original payload bytes.
func DecodeLayout(data []byte) (*Layout, *Envelope, error) {
	envelope, err := DecodeEnvelope(data)
	if err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "envelope_decode_failed", "check the file is a signed in-toto metadata document", toterrors.Context{})
	}
	var probe typeProbe
	if err := json.Unmarshal(envelope.Payload, &probe); err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "payload_decode_failed", "payload must be a JSON object", toterrors.Context{})
	}
	if probe.Type != "" && probe.Type != PayloadTypeLayout {
		return nil, nil, toterrors.New(toterrors.KindSchema, "unexpected_payload_type", "expected a layout payload", toterrors.Context{},
			fmt.Sprintf("model: expected _type %q, got %q", PayloadTypeLayout, probe.Type))
	}
	if LayoutSchema != "" {
		if err := validate.ValidateJSONSchema([]byte(LayoutSchema), envelope.Payload); err != nil {
			return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "layout_schema_invalid", "fix the layout fields the schema flagged", toterrors.Context{})
		}
	}
	var layout Layout
	if err := json.Unmarshal(envelope.Payload, &layout); err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "layout_decode_failed", "layout payload does not match the expected shape", toterrors.Context{})
	}
	if err := layout.Validate(); err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "layout_invalid", "fix the reported layout invariant violation", toterrors.Context{})
	}
	return &layout, envelope, nil
}

// DecodeLink is DecodeLayout's Link counterpart.
func DecodeLink(data []byte) (*Link, *Envelope, error) {
	envelope, err := DecodeEnvelope(data)
	if err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "envelope_decode_failed", "check the file is a signed in-toto metadata document", toterrors.Context{})
	}
	var probe typeProbe
	if err := json.Unmarshal(envelope.Payload, &probe); err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "payload_decode_failed", "payload must be a JSON object", toterrors.Context{})
	}
	if probe.Type != "" && probe.Type != PayloadTypeLink {
		return nil, nil, toterrors.New(toterrors.KindSchema, "unexpected_payload_type", "expected a link payload", toterrors.Context{},
			fmt.Sprintf("model: expected _type %q, got %q", PayloadTypeLink, probe.Type))
	}
	if LinkSchema != "" {
		if err := validate.ValidateJSONSchema([]byte(LinkSchema), envelope.Payload); err != nil {
			return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "link_schema_invalid", "fix the link fields the schema flagged", toterrors.Context{})
		}
	}
	var link Link
	if err := json.Unmarshal(envelope.Payload, &link); err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "link_decode_failed", "link payload does not match the expected shape", toterrors.Context{})
	}
	if err := link.Validate(); err != nil {
		return nil, nil, toterrors.Wrap(err, toterrors.KindSchema, "link_invalid", "fix the reported link invariant violation", toterrors.Context{})
	}
	return &link, envelope, nil
}

// IsSublayout reports whether a step's recorded payload is itself a
// Layout rather than a Link, by peeking at its _type tag (spec §4.7's
// sublayout recursion trigger).
func IsSublayout(data []byte) (bool, error) {
	envelope, err := DecodeEnvelope(data)
	if err != nil {
		return false, err
	}
	var probe typeProbe
	if err := json.Unmarshal(envelope.Payload, &probe); err != nil {
		return false, fmt.Errorf("model: decode payload type: %w", err)
	}
	return probe.Type == PayloadTypeLayout, nil
}
