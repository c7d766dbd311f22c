package client

import (
	"context"
	"net/url"

	"roomdesk/pkg/model"
)

const (
	passwordHeader = "X-Reservation-Password"
	idempotencyKey = "Idempotency-Key"
)

// ReservationClient calls the reservation HTTP API and decodes its
// envelopes. Non-2xx answers come back as *APIError.
type ReservationClient struct {
	http *HttpClient
}

func NewReservationClient(httpClient *HttpClient) *ReservationClient {
	return &ReservationClient{http: httpClient}
}

func roomPath(roomID string) string {
	return "/api/v1/rooms/" + url.PathEscape(roomID)
}

func reservationPath(roomID, id string) string {
	return roomPath(roomID) + "/reservations/" + url.PathEscape(id)
}

func decode[T any](resp *Response, err error) (T, error) {
	var out T
	if err != nil {
		return out, err
	}
	if err := resp.Err(); err != nil {
		return out, err
	}
	if err := resp.DecodeData(&out); err != nil {
		return out, err
	}
	return out, nil
}

func (c *ReservationClient) Rooms(ctx context.Context) ([]model.Room, error) {
	return decode[[]model.Room](c.http.GET(ctx, "/api/v1/rooms", nil))
}

func (c *ReservationClient) Teams(ctx context.Context) ([]model.Team, error) {
	return decode[[]model.Team](c.http.GET(ctx, "/api/v1/teams", nil))
}

func (c *ReservationClient) Status(ctx context.Context) ([]model.RoomStatus, error) {
	return decode[[]model.RoomStatus](c.http.GET(ctx, "/api/v1/status", nil))
}

func (c *ReservationClient) BookingWindow(ctx context.Context) (model.BookingWindow, error) {
	return decode[model.BookingWindow](c.http.GET(ctx, "/api/v1/booking-window", nil))
}

func (c *ReservationClient) List(ctx context.Context, roomID, date string) ([]*model.Reservation, error) {
	path := roomPath(roomID) + "/reservations"
	if date != "" {
		path += "?" + url.Values{"date": {date}}.Encode()
	}
	return decode[[]*model.Reservation](c.http.GET(ctx, path, nil))
}

func (c *ReservationClient) Get(ctx context.Context, roomID, id string) (*model.Reservation, error) {
	return decode[*model.Reservation](c.http.GET(ctx, reservationPath(roomID, id), nil))
}

// Check returns nil when the slot could be booked as given.
func (c *ReservationClient) Check(ctx context.Context, roomID string, check model.SlotCheck) error {
	q := url.Values{}
	q.Set("date", check.Date)
	q.Set("start_time", check.StartTime)
	q.Set("end_time", check.EndTime)
	if check.ExcludeReservationID != "" {
		q.Set("exclude_reservation_id", check.ExcludeReservationID)
	}

	resp, err := c.http.GET(ctx, roomPath(roomID)+"/check?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	return resp.Err()
}

// Create books a slot. A non-empty key makes retries of the same booking
// safe.
func (c *ReservationClient) Create(ctx context.Context, roomID string, req *model.ReservationRequest, key string) (*model.Reservation, error) {
	var headers map[string]string
	if key != "" {
		headers = map[string]string{idempotencyKey: key}
	}
	return decode[*model.Reservation](c.http.POST(ctx, roomPath(roomID)+"/reservations", req, headers))
}

func (c *ReservationClient) Edit(ctx context.Context, roomID, id string, patch *model.ReservationPatch) (*model.Reservation, error) {
	return decode[*model.Reservation](c.http.PUT(ctx, reservationPath(roomID, id), patch, nil))
}

func (c *ReservationClient) Cancel(ctx context.Context, roomID, id, password string) error {
	resp, err := c.http.DELETE(ctx, reservationPath(roomID, id), map[string]string{passwordHeader: password})
	if err != nil {
		return err
	}
	return resp.Err()
}
