package model

import "gorm.io/datatypes"

// Media groups uploaded file URLs by kind.
type Media struct {
	Images []string `json:"images"`
	Videos []string `json:"videos"`
	Audio  []string `json:"audio"`
}

// Empty reports whether no media is attached.
func (m Media) Empty() bool {
	return len(m.Images) == 0 && len(m.Videos) == 0 && len(m.Audio) == 0
}

// Attachments is the JSON column form of Media.
type Attachments = datatypes.JSONType[Media]

// NewAttachments wraps m for storage. Missing kinds are stored as empty
// arrays so clients never see null.
func NewAttachments(m Media) Attachments {
	if m.Images == nil {
		m.Images = []string{}
	}
	if m.Videos == nil {
		m.Videos = []string{}
	}
	if m.Audio == nil {
		m.Audio = []string{}
	}
	return datatypes.NewJSONType(m)
}

// Location is a point with an optional human readable address.
type Location struct {
	Latitude  float64 `gorm:"column:latitude" json:"latitude"`
	Longitude float64 `gorm:"column:longitude" json:"longitude"`
	Address   string  `gorm:"column:address;size:512" json:"address"`
}
