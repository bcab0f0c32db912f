package model

// ServiceType is read-mostly reference data. Appointments snapshot the price
// at creation and look the duration up by name whenever it is needed.
type ServiceType struct {
	Base
	Name            string  `db:"name" json:"name"`
	DurationMinutes int     `db:"duration_minutes" json:"duration_minutes"`
	Price           float64 `db:"price" json:"price"`
	Category        string  `db:"category" json:"category"`
}

type CreateServiceTypeRequest struct {
	Name            string  `json:"name" validate:"required,max=200"`
	DurationMinutes int     `json:"duration_minutes" validate:"required,gte=1,lte=1440"`
	Price           float64 `json:"price" validate:"gte=0"`
	Category        string  `json:"category" validate:"max=100"`
}
