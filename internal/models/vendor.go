package models

import "time"

// Vendor is a persisted vendor record.
type Vendor struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	ContactEmail *string    `json:"contact_email"`
	PhoneNumber  *string    `json:"phone_number"`
	Address      *string    `json:"address"`
	DateCreated  *time.Time `json:"date_created,omitempty"`
}

// VendorInput is the request body accepted by create and update.
type VendorInput struct {
	Name         string  `json:"name" validate:"required"`
	ContactEmail *string `json:"contact_email"`
	PhoneNumber  *string `json:"phone_number"`
	Address      *string `json:"address"`
}

// ToVendor builds the record echoed back for id.
func (in VendorInput) ToVendor(id int64) Vendor {
	return Vendor{
		ID:           id,
		Name:         in.Name,
		ContactEmail: in.ContactEmail,
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
	}
}
