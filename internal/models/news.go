package models

// NewsItem is a single article as served to callers.
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	PublishedAt string `json:"publishedAt"`
	Category    string `json:"category"`
}
