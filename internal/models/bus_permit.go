package models

import (
	"time"
)

// ServiceType is the class of service a permit allows
type ServiceType string

const (
	ServiceTypeLuxury     ServiceType = "luxury"
	ServiceTypeSemiLuxury ServiceType = "semi-luxury"
	ServiceTypeNormal     ServiceType = "normal"
)

// IsValid checks the service type against the known values
func (s ServiceType) IsValid() bool {
	switch s {
	case ServiceTypeLuxury, ServiceTypeSemiLuxury, ServiceTypeNormal:
		return true
	}
	return false
}

// BusPermit is a route permit issued for one bus. Trips are scheduled
// against a permit and inherit its route endpoints.
type BusPermit struct {
	ID           string      `json:"id" db:"id"`
	PermitNumber string      `json:"permit_number" db:"permit_number"`
	BusNumber    string      `json:"bus_number" db:"bus_number"`
	RouteNumber  string      `json:"route_number" db:"route_number"`
	Origin       string      `json:"origin" db:"origin"`
	Destination  string      `json:"destination" db:"destination"`
	ServiceType  ServiceType `json:"service_type" db:"service_type"`
	OperatorName string      `json:"operator_name" db:"operator_name"`
	Address      string      `json:"address" db:"address"`
	ExpiryDate   time.Time   `json:"expiry_date" db:"expiry_date"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// IsValidOn checks the permit has not expired by the given date
func (p *BusPermit) IsValidOn(date time.Time) bool {
	return !date.After(p.ExpiryDate)
}

// CreateBusPermitRequest is the admin request to register a permit
type CreateBusPermitRequest struct {
	PermitNumber string `json:"permit_number" binding:"required"`
	BusNumber    string `json:"bus_number" binding:"required"`
	RouteNumber  string `json:"route_number" binding:"required"`
	Origin       string `json:"origin" binding:"required"`
	Destination  string `json:"destination" binding:"required"`
	ServiceType  string `json:"service_type" binding:"required,oneof=luxury semi-luxury normal"`
	OperatorName string `json:"operator_name" binding:"required"`
	Address      string `json:"address"`
	ExpiryDate   string `json:"expiry_date" binding:"required"`
}

// Validate validates the request and returns the parsed expiry date
func (r *CreateBusPermitRequest) Validate() (time.Time, error) {
	if !ServiceType(r.ServiceType).IsValid() {
		return time.Time{}, NewValidationError("service_type must be one of luxury, semi-luxury, normal")
	}
	expiry, err := time.Parse("2006-01-02", r.ExpiryDate)
	if err != nil {
		if expiry, err = time.Parse(time.RFC3339, r.ExpiryDate); err != nil {
			return time.Time{}, NewValidationError("expiry_date must be an ISO 8601 date")
		}
	}
	return expiry, nil
}
