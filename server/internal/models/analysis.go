package models

import "time"

// Analysis is a stored analysis job for one video.
type Analysis struct {
	ID                      string             `gorm:"primaryKey;size:36" json:"id"`
	VideoName               string             `json:"video_name"`
	FrameWidth              int                `json:"frame_width"`
	FrameHeight             int                `json:"frame_height"`
	TotalDetections         int                `json:"total_detections"`
	TotalEvents             int                `json:"total_events"`
	DedupedEvents           int                `json:"deduped_events"`
	PersonShelfInteractions int                `json:"total_person_shelf_interactions"`
	ConversionCount         int                `json:"konversi_sukses"`
	HesitationCount         int                `json:"keraguan_pembatalan"`
	DisengagedCount         int                `json:"kegagalan_menarik_minat"`
	JourneyLog              string             `gorm:"type:text" json:"-"`
	CreatedAt               time.Time          `json:"created_at"`
	Interactions            []ShelfInteraction `gorm:"foreignKey:AnalysisID" json:"shelf_interactions,omitempty"`
	Funnels                 []ShelfFunnel      `gorm:"foreignKey:AnalysisID" json:"journey_analysis,omitempty"`
}

func (Analysis) TableName() string { return "analyses" }

// ShelfInteraction is one row of the interaction tally.
type ShelfInteraction struct {
	ID               uint   `gorm:"primaryKey" json:"-"`
	AnalysisID       string `gorm:"size:36;index" json:"-"`
	ShelfID          string `json:"shelf_id"`
	Origin           string `json:"origin"`
	InteractionCount int    `json:"interaksi"`
}

func (ShelfInteraction) TableName() string { return "shelf_interactions" }

// ShelfFunnel is the funnel summary of one shelf.
type ShelfFunnel struct {
	ID                uint    `gorm:"primaryKey" json:"-"`
	AnalysisID        string  `gorm:"size:36;index" json:"-"`
	ShelfID           string  `json:"shelf_id"`
	Conversion        float64 `json:"konversi_sukses"`
	Hesitation        float64 `json:"keraguan_pembatalan"`
	Disengaged        float64 `json:"kegagalan_menarik_minat"`
	TotalInteractions int     `json:"total_interactions"`
}

func (ShelfFunnel) TableName() string { return "shelf_funnels" }
