package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseAssignments(t *testing.T) {
	tests := map[string]struct {
		args    []string
		want    map[string]string
		wantErr bool
	}{
		"simple key-value": {
			args: []string{"insights=enabled"},
			want: map[string]string{"insights": "enabled"},
		},
		"multiple assignments": {
			args: []string{"insights=enabled", "drift=disabled", "compliance=enabled"},
			want: map[string]string{"insights": "enabled", "drift": "disabled", "compliance": "enabled"},
		},
		"key with hyphen and underscore": {
			args: []string{"remote_host-config=enabled"},
			want: map[string]string{"remote_host-config": "enabled"},
		},
		"key with digits": {
			args: []string{"cap10=enabled"},
			want: map[string]string{"cap10": "enabled"},
		},
		"double quoted value": {
			args: []string{`note="two words"`},
			want: map[string]string{"note": "two words"},
		},
		"single quoted value": {
			args: []string{`note='two words'`},
			want: map[string]string{"note": "two words"},
		},
		"equal sign in value": {
			args: []string{"query=a=b"},
			want: map[string]string{"query": "a=b"},
		},
		"positional argument": {
			args:    []string{"insights"},
			wantErr: true,
		},
		"empty value": {
			args:    []string{"insights="},
			wantErr: true,
		},
		"quoted empty value": {
			args:    []string{`insights=""`},
			wantErr: true,
		},
		"unterminated quote": {
			args:    []string{`note="open`},
			wantErr: true,
		},
		"duplicate key": {
			args:    []string{"insights=enabled", "insights=disabled"},
			wantErr: true,
		},
		"no argument": {
			args:    nil,
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseAssignments(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseAssignments(%v) expected error, got %v", tt.args, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAssignments(%v) unexpected error: %v", tt.args, err)
			}
			if diff := cmp.Diff(got, tt.want); diff != "" {
				t.Errorf("Mismatch (-got +want):\n%s", diff)
			}
		})
	}
}
