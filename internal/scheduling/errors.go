package scheduling

import "errors"

var (
	// ErrServiceNotFound is returned when a service id does not resolve to an active catalog entry
	ErrServiceNotFound = errors.New("servicio no encontrado")
	// ErrSlotOccupied is returned by Book when the slot overlaps an existing appointment
	ErrSlotOccupied = errors.New("slot no disponible")
)
