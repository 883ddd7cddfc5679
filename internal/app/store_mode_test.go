package app

import "testing"

func TestResolveStoreMode(t *testing.T) {
	cases := []struct {
		configured string
		available  bool
		want       StoreMode
		wantErr    bool
	}{
		{"auto", true, StoreModeNeo4j, false},
		{"auto", false, StoreModeMemory, false},
		{"", true, StoreModeNeo4j, false},
		{"neo4j", true, StoreModeNeo4j, false},
		{"neo4j", false, "", true},
		{"memory", true, StoreModeMemory, false},
		{"memory", false, StoreModeMemory, false},
		{"NEO4J", true, StoreModeNeo4j, false},
		{"bogus", true, "", true},
	}
	for _, tc := range cases {
		got, err := ResolveStoreMode(tc.configured, tc.available)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ResolveStoreMode(%q, %v): expected error", tc.configured, tc.available)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveStoreMode(%q, %v): %v", tc.configured, tc.available, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveStoreMode(%q, %v) = %q, want %q", tc.configured, tc.available, got, tc.want)
		}
	}
}
