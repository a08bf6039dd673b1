package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Entity names used in cache keys
const (
	EntityUser   = "user"
	EntityLead   = "lead"
	EntityClient = "client"
	EntityRole   = "role"
)

// Read operations used in cache keys
const (
	OpGet       = "get"
	OpList      = "list"
	OpCount     = "count"
	OpAggregate = "aggregate"
	OpGroup     = "group"
	OpHierarchy = "hierarchy"
	OpIDs       = "ids"
)

// Write operations. Each invalidates the written entity and its dependents.
const (
	OpCreate     = "create"
	OpBulkCreate = "bulk-create"
	OpUpdate     = "update"
	OpBulkUpdate = "bulk-update"
	OpDelete     = "delete"
	OpBulkDelete = "bulk-delete"
	OpUpsert     = "upsert"
)

// dependents lists the entities whose cached reads derive from another.
// Client scope is computed from leads; every scope is computed from the
// user hierarchy.
var dependents = map[string][]string{
	EntityUser:   {EntityUser, EntityLead, EntityClient},
	EntityLead:   {EntityLead, EntityClient},
	EntityClient: {EntityClient},
	EntityRole:   {EntityRole},
}

// Affected returns the entities to invalidate after writing entity
func Affected(entity string) []string {
	if deps, ok := dependents[entity]; ok {
		return deps
	}
	return []string{entity}
}

// IsWriteOp reports whether op mutates data
func IsWriteOp(op string) bool {
	switch op {
	case OpCreate, OpBulkCreate, OpUpdate, OpBulkUpdate, OpDelete, OpBulkDelete, OpUpsert:
		return true
	}
	return false
}

// Canonicalize renders args as JSON with every object's keys sorted, so
// structurally equal arguments always produce the same text.
func Canonicalize(args any) (string, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("marshal cache args: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode cache args: %w", err)
	}
	// encoding/json writes map keys in sorted order
	out, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("marshal cache args: %w", err)
	}
	return string(out), nil
}

// BuildKey returns "<prefix>:<entity>:<op>:<canonical args>"
func BuildKey(prefix, entity, op string, args any) (string, error) {
	canon, err := Canonicalize(args)
	if err != nil {
		return "", err
	}
	return strings.Join([]string{prefix, entity, op, canon}, ":"), nil
}

// entityPrefix is the key prefix shared by every read of entity
func entityPrefix(prefix, entity string) string {
	return prefix + ":" + entity + ":"
}
