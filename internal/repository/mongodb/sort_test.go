package mongodb

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"github.com/stretchr/testify/assert"
)

func TestBuildSort(t *testing.T) {
	tests := []struct {
		token string
		want  bson.D
	}{
		{"", bson.D{{Key: "time", Value: 1}}},
		{"time", bson.D{{Key: "time", Value: 1}}},
		{"+time", bson.D{{Key: "time", Value: 1}}},
		{"-time", bson.D{{Key: "time", Value: -1}}},
		{"active", bson.D{{Key: "time", Value: 1}}},
		{"-active", bson.D{{Key: "time", Value: -1}}},
		{"score", bson.D{{Key: "score", Value: 1}, {Key: "time", Value: 1}}},
		{"-score", bson.D{{Key: "score", Value: -1}, {Key: "time", Value: 1}}},
		{"controversy", bson.D{{Key: "controversy", Value: 1}, {Key: "time", Value: 1}}},
		{"-controversy", bson.D{{Key: "controversy", Value: -1}, {Key: "time", Value: 1}}},
		{"bogus", bson.D{{Key: "time", Value: 1}}},
		{"-bogus", bson.D{{Key: "time", Value: 1}}},
	}
	for _, tt := range tests {
		t.Run("token "+tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, buildSort(tt.token))
		})
	}
}
