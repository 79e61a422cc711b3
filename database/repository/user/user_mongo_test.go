package userRepo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildSearchFilter(t *testing.T) {
	tests := []struct {
		name   string
		filter SearchFilter
		want   bson.M
	}{
		{name: "everyone", want: bson.M{}},
		{name: "school only", filter: SearchFilter{School: "NYU"}, want: bson.M{"school": "NYU"}},
		{name: "year only", filter: SearchFilter{SchoolYear: "Junior"}, want: bson.M{"schoolYear": "Junior"}},
		{
			name:   "school and year",
			filter: SearchFilter{School: "NYU", SchoolYear: "Senior", Limit: 10},
			want:   bson.M{"school": "NYU", "schoolYear": "Senior"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSearchFilter(tt.filter))
		})
	}
}
