package structures

import (
	"fmt"

	"github.com/levelsub-zero/mace/pkg/canonical"
	"github.com/levelsub-zero/mace/pkg/determinism"
)

// maxInlineEvidenceBytes is the 16 KiB inline threshold: above this,
// content is redacted and pointed at an artifact blob instead.
const maxInlineEvidenceBytes = 16_384

// NewSEMReadEvidence builds the evidence object for one observed SEM read
// hit. When the canonical serialization of value exceeds 16 KiB, the
// content is redacted and the serialized bytes are persisted to store
// under a content-addressed URL instead of being inlined. store is any
// blob store with pkg/artifact.Store's Save method.
func NewSEMReadEvidence(det *determinism.Context, store interface {
	Save(blob []byte) (string, error)
}, key string, value any) (EvidenceObject, error) {
	c := det.Increment("evidence")
	id, err := det.DeriveID("evidence", key, &c)
	if err != nil {
		return EvidenceObject{}, err
	}
	ec := det.Increment("evidence")
	createdAt, err := det.DeriveTimestamp(&ec)
	if err != nil {
		return EvidenceObject{}, err
	}

	seed, _ := det.Seed()
	source := EvidenceSource{Origin: "sem", Reference: key, FetchSeed: seed}

	blob, err := canonical.Serialize(value)
	if err != nil {
		return EvidenceObject{}, fmt.Errorf("structures: serialize evidence value: %w", err)
	}

	if len(blob) <= maxInlineEvidenceBytes {
		text := string(blob)
		return EvidenceObject{
			EvidenceID: id,
			Type:       EvidenceTypeSEMReadSnapshot,
			Content:    EvidenceContent{Text: text, Structured: value},
			Source:     source,
			CreatedAt:  createdAt,
			Provenance: nil,
			RawPayload: &text,
		}, nil
	}

	url, err := store.Save(blob)
	if err != nil {
		return EvidenceObject{}, fmt.Errorf("structures: persist redacted evidence: %w", err)
	}
	return EvidenceObject{
		EvidenceID: id,
		Type:       EvidenceTypeSEMReadSnapshot,
		Content: EvidenceContent{
			Text:       fmt.Sprintf("<Redacted: %d bytes>", len(blob)),
			Structured: nil,
		},
		Source:     source,
		CreatedAt:  createdAt,
		Provenance: []ProvenanceRecord{{ArtifactURL: url}},
		RawPayload: nil,
	}, nil
}
