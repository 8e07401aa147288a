package dto

const DateLayout = "2006-01-02"

type PersonDTO struct {
	BaseDTO
	Name      string  `json:"name" validate:"required,max=120"`
	Email     string  `json:"email,omitempty" validate:"omitempty,email,max=254"`
	Document  string  `json:"document,omitempty" validate:"omitempty,max=40"`
	Phone     string  `json:"phone,omitempty" validate:"omitempty,max=30"`
	BirthDate *string `json:"birth_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	// PhotoURL is output only; it changes through the photo upload endpoint.
	PhotoURL string `json:"photo_url,omitempty"`
}
