package catalog

import "testing"

const (
	subjectID = "6f1c2f7e-3b8a-4c55-9d1e-0a6b7c8d9e01"
	groupID   = "2b0c9e44-5d7f-4a1b-8c3e-9f8a7b6c5d02"
)

func intPtr(v int) *int {
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	standard := TableConfig{Subject: subjectID, Source: "STANDARD", Tiers: []TierConfig{{Min: 1, Price: int64Ptr(1000)}}}

	tests := []struct {
		name    string
		sheet   *PriceSheet
		wantErr bool
	}{
		{
			name:  "valid sheet",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates", Currency: "KRW"}, Tables: []TableConfig{standard}},
		},
		{
			name:    "name required",
			sheet:   &PriceSheet{Tables: []TableConfig{standard}},
			wantErr: true,
		},
		{
			name:    "foreign currency",
			sheet:   &PriceSheet{Sheet: SheetConfig{Name: "rates", Currency: "usd"}, Tables: []TableConfig{standard}},
			wantErr: true,
		},
		{
			name:    "no tables",
			sheet:   &PriceSheet{Sheet: SheetConfig{Name: "rates"}},
			wantErr: true,
		},
		{
			name:    "duplicate scope",
			sheet:   &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{standard, standard}},
			wantErr: true,
		},
		{
			name: "group without scope",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "GROUP", Tiers: []TierConfig{{Min: 1, Price: int64Ptr(900)}}},
			}},
			wantErr: true,
		},
		{
			name: "standard with scope",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "STANDARD", Scope: groupID, Tiers: []TierConfig{{Min: 1, Price: int64Ptr(900)}}},
			}},
			wantErr: true,
		},
		{
			name: "group discount has no table",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "GROUP_DISCOUNT", Scope: groupID},
			}},
			wantErr: true,
		},
		{
			name: "max below min",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "STANDARD", Tiers: []TierConfig{{Min: 10, Max: intPtr(5), Price: int64Ptr(900)}}},
			}},
			wantErr: true,
		},
		{
			name: "unknown sided key",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "STANDARD", Tiers: []TierConfig{{Min: 1, Prices: map[string]int64{"eight_color_double": 900}}}},
			}},
			wantErr: true,
		},
		{
			name: "bad range bound",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "STANDARD", Tiers: []TierConfig{{Min: 1, Ranges: []RangeConfig{{Label: "a", Lower: "abc", Price: 1}}}}},
			}},
			wantErr: true,
		},
		{
			name: "duplicate range label",
			sheet: &PriceSheet{Sheet: SheetConfig{Name: "rates"}, Tables: []TableConfig{
				{Subject: subjectID, Source: "STANDARD", Tiers: []TierConfig{{Min: 1, Ranges: []RangeConfig{{Label: "a", Price: 1}, {Label: "a", Price: 2}}}}},
			}},
			wantErr: true,
		},
	}

	validator := NewValidator()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate(tt.sheet)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})
	}
}
