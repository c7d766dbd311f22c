package model

// Room is a bookable meeting room. Rooms come from the catalog.
type Room struct {
	ID   string `json:"id" bson:"_id" validate:"required,max=64"`
	Name string `json:"name" bson:"name" validate:"required,max=100"`
}

// Team owns reservations. Teams come from the catalog.
type Team struct {
	ID   string `json:"id" bson:"_id" validate:"required,max=64"`
	Name string `json:"name" bson:"name" validate:"required,max=100"`
}
