// Package identity derives every stable identifier written to the graph.
//
// All identifiers are UUIDv5 values over uuid.NameSpaceDNS with a
// "{namespace}-{identifier}" name, which keeps them byte-compatible with the
// Python uuid5 scheme the existing graph data was written with. Changing the
// hash scheme or a namespace string silently duplicates every node on the
// next ingestion run, so neither may change without a data migration.
package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyNativeID is returned when a caller asks for an episodic UUID
// without a source identifier. Hashing an empty string would make every such
// record collide on one node, so this fails fast instead.
var ErrEmptyNativeID = errors.New("native id must not be empty")

// DefaultPartition is the group_id used when a source record carries no
// collection name.
const DefaultPartition = "default"

// EdgeKind selects the derivation scheme for edge UUIDs.
type EdgeKind string

const (
	EdgeMentions  EdgeKind = "mentions"
	EdgeRelatesTo EdgeKind = "relates"
)

// NormalizeName canonicalizes an entity name for identity purposes: trimmed
// and lowercased. The same normalization must run before every identity
// comparison, not only before hashing.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Partition derives a group_id from a source collection name: lowercased,
// every run of non-alphanumeric characters collapsed to a single hyphen,
// leading and trailing hyphens stripped. Empty or all-punctuation input maps
// to DefaultPartition.
func Partition(collection string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(collection) {
		alnum := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !alnum {
			pendingHyphen = b.Len() > 0
			continue
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return DefaultPartition
	}
	return b.String()
}

// EpisodicUUID derives the stable UUID for a document node from its source
// namespace (e.g. "bookstack-episodic") and the source system's native id.
func EpisodicUUID(namespace, nativeID string) (string, error) {
	if strings.TrimSpace(nativeID) == "" {
		return "", ErrEmptyNativeID
	}
	return derive(namespace, nativeID), nil
}

// EntityUUID derives the stable UUID for an entity from its normalized name
// and partition. The pair (name, group_id) is the entity's identity key, so
// the UUID can be recomputed before the node exists.
func EntityUUID(name, groupID string) string {
	return derive("entity", fmt.Sprintf("%s-%s", NormalizeName(name), groupID))
}

// EdgeUUID derives the stable UUID for an edge between two nodes. For
// RELATES_TO the predicate participates, so distinct predicates between the
// same entity pair stay distinct edges; for MENTIONS it is ignored.
func EdgeUUID(kind EdgeKind, aUUID, bUUID, predicate string) string {
	if kind == EdgeRelatesTo {
		return derive(string(kind), fmt.Sprintf("%s-%s-%s", aUUID, predicate, bUUID))
	}
	return derive(string(kind), fmt.Sprintf("%s-%s", aUUID, bUUID))
}

func derive(namespace, identifier string) string {
	name := fmt.Sprintf("%s-%s", namespace, identifier)
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(name)).String()
}
