package domain

import "time"

type VoteRecord struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"productID"`
	CreatedAt time.Time `json:"date"`
}

type TallyEntry struct {
	SubjectID string `json:"productID"`
	Count     int    `json:"count"`
}

type Product struct {
	ID         string
	Title      string
	Price      string
	ImgURL     string
	ProductURL string
	CategoryID string
}

type Category struct {
	ID   string
	Name string
}

const shortTitleLen = 20

// ShortTitle cuts titles longer than 20 characters and appends "...".
func (p Product) ShortTitle() string {
	r := []rune(p.Title)
	if len(r) <= shortTitleLen {
		return p.Title
	}
	return string(r[:shortTitleLen]) + "..."
}

// SubjectID is the identifier votes for this product are recorded under.
func (p Product) SubjectID() string {
	if p.ID != "" {
		return p.ID
	}
	return p.Title
}
