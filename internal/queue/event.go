// Package queue defines message payloads exchanged over the message broker
// and the background consumer that processes them.
package queue

// ReservationConfirmedEvent is published when a payment succeeds and a
// reservation flips to CONFIRMED.  It carries enough information for
// downstream consumers to log or notify without querying the primary
// database.
type ReservationConfirmedEvent struct {
	ReservationID uint64  `json:"reservation_id"`
	UserID        uint64  `json:"user_id"`
	RoomID        uint64  `json:"room_id"`
	RoomNumber    int     `json:"room_number"`
	CheckIn       string  `json:"check_in"`
	CheckOut      string  `json:"check_out"`
	Nights        int     `json:"nights"`
	NumGuests     int     `json:"num_guests"`
	TotalPrice    float64 `json:"total_price"`
	Currency      string  `json:"currency"`
	ConfirmedAt   string  `json:"confirmed_at"`
}
