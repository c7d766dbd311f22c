package validators

import "go.mongodb.org/mongo-driver/bson"

// Rooms and teams share a shape: a string _id and a display name.
func catalogEntryValidator() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":             "object",
			"required":             []string{"_id", "name"},
			"additionalProperties": true,
			"properties": bson.M{
				"_id": bson.M{
					"bsonType":  "string",
					"minLength": 1,
					"maxLength": 64,
				},
				"name": bson.M{
					"bsonType":  "string",
					"minLength": 1,
					"maxLength": 100,
				},
			},
		},
	}
}

var (
	RoomValidator = catalogEntryValidator()
	TeamValidator = catalogEntryValidator()
)
