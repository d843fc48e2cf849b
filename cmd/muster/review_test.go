package main

import (
	"testing"
)

func TestReviewWantsJSON(t *testing.T) {
	cases := []struct {
		name                     string
		printFlag, pretty, jsonF bool
		want                     bool
	}{
		{"default is structured", false, false, false, true},
		{"pretty selects the listing", false, true, false, false},
		{"print forces structured", true, false, false, true},
		{"print wins over pretty", true, true, false, true},
		{"global json wins over pretty", false, true, true, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := reviewWantsJSON(tc.printFlag, tc.pretty, tc.jsonF); got != tc.want {
				t.Errorf("reviewWantsJSON(%v, %v, %v) = %v, want %v",
					tc.printFlag, tc.pretty, tc.jsonF, got, tc.want)
			}
		})
	}
}

func TestParseTaskFilter(t *testing.T) {
	if got := parseTaskFilter(nil); got != nil {
		t.Errorf("no args should yield nil filter, got %+v", got)
	}

	filter := parseTaskFilter([]string{"2", "Wire the parser", "0"})
	if filter == nil {
		t.Fatal("expected a filter")
	}
	if len(filter.Indices) != 2 || filter.Indices[0] != 2 || filter.Indices[1] != 0 {
		t.Errorf("unexpected indices: %v", filter.Indices)
	}
	if len(filter.Titles) != 1 || filter.Titles[0] != "Wire the parser" {
		t.Errorf("unexpected titles: %v", filter.Titles)
	}
}
