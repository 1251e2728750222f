package models

import "testing"

func TestParseDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "full document url",
			input: "https://www.scribd.com/document/123456789/Some-Title",
			want:  "123456789",
		},
		{
			name:  "document url without title",
			input: "https://www.scribd.com/document/42",
			want:  "42",
		},
		{
			name:  "bare numeric id",
			input: "123456789",
			want:  "123456789",
		},
		{
			name:  "surrounding whitespace",
			input: "  123456789\n",
			want:  "123456789",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "unrelated url",
			input:   "https://www.scribd.com/home",
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			input:   "abc123",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDocumentID(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDocumentID(%q) = %q, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDocumentID(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseDocumentID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
