package domain

import "time"

// Employee is a stylist, barber or receptionist of the salon
type Employee struct {
	ID        int64
	Name      string
	Role      string // "estilista", "recepción"...
	Phone     string
	Email     string
	CreatedAt time.Time
}

// Customer is someone who books appointments
type Customer struct {
	ID         int64
	Name       string
	Phone      string
	Email      string
	TelegramID *int64 // set when the customer registered through the bot
	CreatedAt  time.Time
}
