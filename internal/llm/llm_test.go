package llm

import (
	"encoding/json"
	"testing"
)

func TestEnhancementDecodesActionItemForms(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []ActionItem
	}{
		{
			name: "strings",
			raw:  `{"actionItems":["Ship v2","Email client"]}`,
			want: []ActionItem{{Description: "Ship v2"}, {Description: "Email client"}},
		},
		{
			name: "objects",
			raw:  `{"actionItems":[{"description":"Ship v2","dueDate":"2026-03-06"},{"description":"Email client"}]}`,
			want: []ActionItem{{Description: "Ship v2", DueDate: "2026-03-06"}, {Description: "Email client"}},
		},
		{
			name: "mixed with task key",
			raw:  `{"actionItems":["Ship v2",{"task":"Email client"}]}`,
			want: []ActionItem{{Description: "Ship v2"}, {Description: "Email client"}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			var out Enhancement
			if err := json.Unmarshal([]byte(tt.raw), &out); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(out.ActionItems) != len(tt.want) {
				t.Fatalf("expected %d items, got %+v", len(tt.want), out.ActionItems)
			}
			for i := range tt.want {
				if out.ActionItems[i] != tt.want[i] {
					t.Fatalf("item %d: expected %+v, got %+v", i, tt.want[i], out.ActionItems[i])
				}
			}
		})
	}
}

func TestActionItemRejectsNumbers(t *testing.T) {
	var item ActionItem
	if err := json.Unmarshal([]byte(`42`), &item); err == nil {
		t.Fatalf("expected error for numeric action item")
	}
}
