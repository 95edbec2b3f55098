package llm

import "testing"

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"era_id": "E1"}`,
			want:  `{"era_id": "E1"}`,
		},
		{
			name:  "fenced",
			input: "```json\n{\"era_id\": \"E1\"}\n```",
			want:  `{"era_id": "E1"}`,
		},
		{
			name:  "fenced without language tag",
			input: "```\n{\"era_id\": \"E1\"}\n```",
			want:  `{"era_id": "E1"}`,
		},
		{
			name:  "prose wrapped",
			input: `Here is the assignment: {"era_id": "E1"} as requested.`,
			want:  `{"era_id": "E1"}`,
		},
		{
			name:  "surrounding whitespace",
			input: "\n  {\"era_id\": \"E1\"}  \n",
			want:  `{"era_id": "E1"}`,
		},
		{
			name:    "no json at all",
			input:   "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "broken json",
			input:   `{"era_id": "E1"`,
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
