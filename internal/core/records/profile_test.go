package records

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestProfileRecord_JSON(t *testing.T) {
	tests := []struct {
		name    string
		profile ProfileRecord
		want    map[string]any
	}{
		{
			name:    "modelled fields only",
			profile: ProfileRecord{Type: ProfileCollection, DisplayName: "Alice"},
			want:    map[string]any{"$type": ProfileCollection, "displayName": "Alice"},
		},
		{
			name: "extra fields are written",
			profile: ProfileRecord{
				Type:  ProfileCollection,
				Extra: map[string]any{"createdAt": "2024-01-01T00:00:00.000Z", "pinnedPost": map[string]any{"uri": "at://x"}},
			},
			want: map[string]any{
				"$type":      ProfileCollection,
				"createdAt":  "2024-01-01T00:00:00.000Z",
				"pinnedPost": map[string]any{"uri": "at://x"},
			},
		},
		{
			name: "modelled field wins over extra",
			profile: ProfileRecord{
				Type:        ProfileCollection,
				DisplayName: "New",
				Extra:       map[string]any{"displayName": "Old"},
			},
			want: map[string]any{"$type": ProfileCollection, "displayName": "New"},
		},
		{
			name: "cleared modelled field stays cleared",
			profile: ProfileRecord{
				Type:  ProfileCollection,
				Extra: map[string]any{"description": "stale", "labels": "kept"},
			},
			want: map[string]any{"$type": ProfileCollection, "labels": "kept"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.profile)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("bad json %s: %v", data, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("json = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeProfile_SplitsExtra(t *testing.T) {
	profile, err := decodeProfile(map[string]any{
		"$type":       ProfileCollection,
		"displayName": "Alice",
		"avatar":      map[string]any{"$type": "blob"},
		"createdAt":   "2024-01-01T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("decodeProfile failed: %v", err)
	}

	if profile.DisplayName != "Alice" || profile.Avatar["$type"] != "blob" {
		t.Errorf("modelled fields = %+v", profile)
	}
	want := map[string]any{"createdAt": "2024-01-01T00:00:00.000Z"}
	if !reflect.DeepEqual(profile.Extra, want) {
		t.Errorf("Extra = %v, want %v", profile.Extra, want)
	}

	bare, err := decodeProfile(map[string]any{"$type": ProfileCollection})
	if err != nil {
		t.Fatalf("decodeProfile failed: %v", err)
	}
	if bare.Extra != nil {
		t.Errorf("Extra = %v, want nil", bare.Extra)
	}
}
