package models

import "time"

var ArticleCategories = []string{"farm", "cultivation", "health", "event"}

type Article struct {
	ID          string    `json:"id" example:"1"`
	Title       string    `json:"title" validate:"required,max=200" example:"봄철 토마토 수확이 시작되었습니다"`
	Excerpt     string    `json:"excerpt" validate:"max=500"`
	Content     string    `json:"content" validate:"max=20000"`
	Image       string    `json:"image,omitempty" validate:"omitempty,max=500"`
	Category    string    `json:"category" validate:"required,oneof=farm cultivation health event" example:"farm"`
	Author      string    `json:"author" validate:"required,max=100" example:"김농부"`
	PublishDate time.Time `json:"publish_date" example:"2024-03-15T00:00:00Z"`
	ReadTime    int       `json:"read_time" validate:"gte=0" example:"3"`
	Views       int       `json:"views" validate:"gte=0" example:"245"`
	Tags        []string  `json:"tags,omitempty" validate:"max=20,dive,min=1,max=50"`
	Featured    bool      `json:"featured"`
}
