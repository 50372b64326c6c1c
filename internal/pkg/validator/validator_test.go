package validator

import "testing"

type stackRequest struct {
	ID    int64 `json:"id" validate:"required,gt=0"`
	Count int   `json:"count" validate:"gte=0"`
}

type listRequest struct {
	Type   string         `json:"type" validate:"required,resource_type"`
	Stacks []stackRequest `json:"stacks" validate:"required,min=1,dive"`
}

func TestValidator_Validate(t *testing.T) {
	v := New()

	tests := []struct {
		name       string
		input      listRequest
		wantFields []string
	}{
		{
			name:  "valid",
			input: listRequest{Type: "items", Stacks: []stackRequest{{ID: 1, Count: 2}}},
		},
		{
			name:       "unknown type",
			input:      listRequest{Type: "skins", Stacks: []stackRequest{{ID: 1}}},
			wantFields: []string{"type"},
		},
		{
			name:       "empty stacks",
			input:      listRequest{Type: "prices", Stacks: []stackRequest{}},
			wantFields: []string{"stacks"},
		},
		{
			name:       "bad stack",
			input:      listRequest{Type: "prices", Stacks: []stackRequest{{ID: 0, Count: -1}}},
			wantFields: []string{"id", "count"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := v.Validate(tt.input)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("Validate() returned %d errors, want %d: %+v", len(errs), len(tt.wantFields), errs)
			}
			for i, field := range tt.wantFields {
				if errs[i].Field != field {
					t.Errorf("error %d field = %q, want %q", i, errs[i].Field, field)
				}
				if errs[i].Message == "" {
					t.Errorf("error %d has no message", i)
				}
			}
		})
	}
}
