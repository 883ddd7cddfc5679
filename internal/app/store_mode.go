package app

import (
	"fmt"
	"strings"
)

// StoreMode selects the graph store backend.
type StoreMode string

const (
	StoreModeAuto   StoreMode = "auto"
	StoreModeNeo4j  StoreMode = "neo4j"
	StoreModeMemory StoreMode = "memory"
)

// ResolveStoreMode decides the backend from the configured mode and whether
// a bolt connection is available. Auto prefers the real database and falls
// back to the in-memory store; asking for neo4j without a connection is a
// configuration error.
func ResolveStoreMode(configured string, neo4jAvailable bool) (StoreMode, error) {
	switch StoreMode(strings.ToLower(strings.TrimSpace(configured))) {
	case StoreModeAuto, "":
		if neo4jAvailable {
			return StoreModeNeo4j, nil
		}
		return StoreModeMemory, nil
	case StoreModeNeo4j:
		if !neo4jAvailable {
			return "", fmt.Errorf("store mode neo4j requires NEO4J_URI")
		}
		return StoreModeNeo4j, nil
	case StoreModeMemory:
		return StoreModeMemory, nil
	default:
		return "", fmt.Errorf("unknown store mode %q", configured)
	}
}
