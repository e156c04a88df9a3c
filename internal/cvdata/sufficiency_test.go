package cvdata

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cv-intake-go/internal/types"
)

func TestIsSufficient(t *testing.T) {
	tests := []struct {
		name        string
		extracted   types.ExtractedRecord
		want        bool
		wantMissing []string
	}{
		{
			name: "fullName加email满足",
			extracted: types.ExtractedRecord{
				"personalInfo": map[string]interface{}{
					"fullName": "Jane Doe",
					"email":    "j@x.com",
				},
			},
			want: true,
		},
		{
			name: "firstName和lastName可替代fullName",
			extracted: types.ExtractedRecord{
				"personalInfo": map[string]interface{}{
					"firstName": "Jane",
					"lastName":  "Doe",
					"email":     "j@x.com",
				},
			},
			want: true,
		},
		{
			name: "缺email",
			extracted: types.ExtractedRecord{
				"personalInfo": map[string]interface{}{
					"fullName": "Jane Doe",
				},
			},
			want:        false,
			wantMissing: []string{LabelEmail},
		},
		{
			name: "只有firstName不算有名字",
			extracted: types.ExtractedRecord{
				"personalInfo": map[string]interface{}{
					"firstName": "Jane",
					"email":     "j@x.com",
				},
			},
			want:        false,
			wantMissing: []string{LabelFullName},
		},
		{
			name: "哨兵值不算有值",
			extracted: types.ExtractedRecord{
				"personalInfo": map[string]interface{}{
					"fullName": "null",
					"email":    "",
				},
			},
			want:        false,
			wantMissing: []string{LabelFullName, LabelEmail},
		},
		{
			name:        "完全空的记录",
			extracted:   types.ExtractedRecord{},
			want:        false,
			wantMissing: []string{LabelFullName, LabelEmail},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSufficient(tt.extracted))
			assert.Equal(t, tt.wantMissing, MissingFields(tt.extracted))
		})
	}
}
