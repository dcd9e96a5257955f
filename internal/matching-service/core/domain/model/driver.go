package model

import "fmt"

type Driver struct {
	ID       int64  `json:"id"`
	Phone    string `json:"phone_number"`
	FullName string `json:"full_name"`
	Plate    string `json:"registration_plate_number"`
	CarType  string `json:"car_type"`
	PhotoURL string `json:"car_photo_url"`
	Capacity int    `json:"car_capacity"`
}

func (d Driver) Validate() error {
	if d.Phone == "" || d.FullName == "" || d.Plate == "" {
		return fmt.Errorf("phone, name and plate are required")
	}
	if d.Capacity < 1 || d.Capacity > 6 {
		return fmt.Errorf("capacity must be between 1 and 6, got %d", d.Capacity)
	}
	return nil
}

// PhotoAttachment is the car picture sent to the rider after a match.
func (d Driver) PhotoAttachment() *Attachment {
	if d.PhotoURL == "" {
		return nil
	}
	return &Attachment{
		URL:      d.PhotoURL,
		Filename: fmt.Sprintf("car-%s.png", d.Plate),
	}
}
