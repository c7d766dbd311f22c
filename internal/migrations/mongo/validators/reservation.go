package validators

import "go.mongodb.org/mongo-driver/bson"

const (
	datePattern      = `^[0-9]{4}-[0-9]{2}-[0-9]{2}$`
	timeOfDayPattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`
	endTimePattern   = `^(([01][0-9]|2[0-3]):[0-5][0-9]|24:00)$`
)

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"room_id",
			"team_id",
			"reservation_date",
			"start_time",
			"end_time",
			"password_hash",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"room_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"team_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"reservation_date": bson.M{
				"bsonType": "string",
				"pattern":  datePattern,
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  timeOfDayPattern,
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  endTimePattern,
			},

			"password_hash": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
