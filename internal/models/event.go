package models

import "time"

// Event is a ticketed event with a fixed capacity
type Event struct {
	ID           string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Title        string    `gorm:"type:varchar(255);not null" json:"title"`
	Venue        string    `gorm:"type:varchar(255)" json:"venue"`
	StartsAt     time.Time `json:"starts_at"`
	TotalTickets int       `gorm:"not null" json:"total_tickets"`
	TicketsSold  int       `gorm:"not null;default:0" json:"tickets_sold"`
}

// Remaining returns how many tickets can still be sold
func (e *Event) Remaining() int {
	if e.TicketsSold >= e.TotalTickets {
		return 0
	}
	return e.TotalTickets - e.TicketsSold
}
